package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/digest/internal/config"
	"github.com/MrSnakeDoc/digest/internal/httpserver"
	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
	"github.com/MrSnakeDoc/digest/internal/importer"
	"github.com/MrSnakeDoc/digest/internal/logger"
	"github.com/MrSnakeDoc/digest/internal/reader"
	"github.com/MrSnakeDoc/digest/internal/redis"
	"github.com/MrSnakeDoc/digest/internal/store/postgres"
	"github.com/MrSnakeDoc/digest/internal/store/rediscache"
	"github.com/MrSnakeDoc/digest/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	pool        *pgxpool.Pool
	redisClient *goredis.Client
	importJob   *importer.Importer
}

func New() (*App, error) {
	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Postgres holds the bookmarks; without it there is no service.
	loggerClient.Info("connecting to postgres")
	pool, err := postgres.Connect(context.Background(), postgres.ConnectOptions{
		URL:            cfg.DatabaseURL,
		MaxConns:       int32(cfg.DBMaxConns),
		ConnectTimeout: cfg.DBConnectTimeout,
		RetryInterval:  cfg.DBRetryInterval,
		SkipBootstrap:  cfg.DBSkipBootstrap,
	}, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	loggerClient.Info("postgres initialized successfully")

	bookmarkStore := postgres.NewStore(pool, cfg.DBQueryTimeout)

	// Redis only backs the enrichment cache and idempotency tokens.
	// A failed connection degrades those features, never the service.
	// cache stays a nil interface unless Redis actually comes up; a
	// typed nil pointer in there would defeat the handlers' nil checks.
	var redisClient *goredis.Client
	var cache deps.Cache
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Warnf("Redis unavailable, running without enrichment cache: %v", err)
			redisClient = nil
		} else {
			cache = rediscache.NewCache(redisClient)
			loggerClient.Info("Redis initialized successfully")
		}
	} else {
		loggerClient.Info("Redis not configured, enrichment cache disabled")
	}

	var importJob *importer.Importer
	if cfg.ImportFile != "" {
		owner, err := uuid.Parse(cfg.ImportOwner)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("invalid import owner %q: %w", cfg.ImportOwner, err)
		}
		importJob = importer.New(cfg.ImportFile, owner, bookmarkStore, cfg.FaviconServiceURL, loggerClient)
	}

	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		Store:          bookmarkStore,
		StorePing:      pingPool(pool),
		Cache:          cache,
		Reader:         reader.New(cfg.ReaderBaseURL, cfg.ReaderAPIKey, cfg.ReaderTimeout),
		FaviconBase:    cfg.FaviconServiceURL,
		CacheTTL:       cfg.CacheTTL,
		IdempotencyTTL: cfg.IdempotencyTTL,
		AuthSecret:     cfg.AuthSecret,
		TrustProxy:     cfg.TrustProxy,
		RateBurst:      cfg.RateLimitBurst,
		RatePerMin:     cfg.RateLimitPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		pool:        pool,
		redisClient: redisClient,
		importJob:   importJob,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Digest v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Digest %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One-shot import before the server takes traffic, so the first
	// list request already sees the imported set.
	if a.importJob != nil {
		if err := a.importJob.Run(ctx); err != nil {
			return fmt.Errorf("bookmark import failed: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.pool.Close()
	a.logger.Info("✅ Digest stopped cleanly")
	return nil
}

func pingPool(pool *pgxpool.Pool) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
