package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/digest/internal/logger"
)

// ConnectOptions defines PostgreSQL connection behavior.
type ConnectOptions struct {
	URL            string        // connection URL (postgresql://...)
	MaxConns       int32         // pool upper bound
	ConnectTimeout time.Duration // total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // initial wait between retries (grows exponentially)
	SkipBootstrap  bool          // skip schema bootstrap (managed migrations)
}

// schema is applied at startup unless bootstrap is skipped. Owner scoping
// lives in every query predicate; the index serves the list-by-owner path.
const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	id          UUID PRIMARY KEY,
	owner_id    UUID NOT NULL,
	url         TEXT NOT NULL,
	title       TEXT,
	summary     TEXT,
	tags        TEXT[],
	favicon_url TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS bookmarks_owner_created_idx
	ON bookmarks (owner_id, created_at DESC);
`

// Connect opens a pgx pool and pings it with retry and exponential
// backoff until ConnectTimeout is exhausted.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pingWithRetry(ctx, pool, opts, log); err != nil {
		pool.Close()
		return nil, err
	}

	if !opts.SkipBootstrap {
		if _, err := pool.Exec(ctx, schema); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to bootstrap schema: %w", err)
		}
	}

	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, opts ConnectOptions, log logger.Logger) error {
	deadline, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	attempt := 0
	wait := opts.RetryInterval
	if wait <= 0 {
		wait = 2 * time.Second
	}

	for {
		attempt++
		err := pool.Ping(deadline)
		if err == nil {
			if attempt > 1 {
				log.Warn("connected to postgres after retry",
					logger.Int("attempts", attempt))
			} else {
				log.Info("connected to postgres")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-deadline.Done():
			timer.Stop()
			log.Error("postgres unavailable - failed to connect after timeout",
				logger.Int("attempts", attempt),
				logger.Duration("timeout", opts.ConnectTimeout),
				logger.Error(err))
			return fmt.Errorf("postgres unavailable after %d attempts (timeout: %v): %w",
				attempt, opts.ConnectTimeout, err)

		case <-timer.C:
			log.Warn("postgres connection failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			// Exponential backoff, capped at the connect timeout
			wait *= 2
			if wait > opts.ConnectTimeout {
				wait = opts.ConnectTimeout
			}
		}
	}
}
