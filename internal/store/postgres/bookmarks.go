package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrSnakeDoc/digest/internal/domain"
	"github.com/MrSnakeDoc/digest/internal/store"
)

// Store implements store.BookmarkStore over a pgx pool.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewStore creates a bookmark store. queryTimeout bounds every statement;
// zero disables the bound.
func NewStore(pool *pgxpool.Pool, queryTimeout time.Duration) *Store {
	return &Store{
		pool:         pool,
		queryTimeout: queryTimeout,
	}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// List returns all bookmarks for owner, ordered by created_at descending.
func (s *Store) List(ctx context.Context, owner uuid.UUID) ([]*domain.Bookmark, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, url, title, summary, tags, favicon_url, created_at
		FROM bookmarks
		WHERE owner_id = $1
		ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	bookmarks := make([]*domain.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return bookmarks, nil
}

// Get returns a single bookmark within the owner's scope.
func (s *Store) Get(ctx context.Context, id, owner uuid.UUID) (*domain.Bookmark, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, url, title, summary, tags, favicon_url, created_at
		FROM bookmarks
		WHERE id = $1 AND owner_id = $2`,
		id, owner,
	)

	b, err := scanBookmark(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return b, nil
}

// Create persists a new bookmark and returns the stored row.
func (s *Store) Create(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO bookmarks (id, owner_id, url, title, summary, tags, favicon_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, owner_id, url, title, summary, tags, favicon_url, created_at`,
		b.ID, b.OwnerID, b.URL,
		nullable(b.Title), nullable(b.Summary), b.Tags, nullable(b.FaviconURL),
	)

	created, err := scanBookmark(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return created, nil
}

// Delete removes one bookmark within the owner's scope. The owner
// predicate makes a foreign-owned id look like a missing one.
func (s *Store) Delete(ctx context.Context, id, owner uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM bookmarks
		WHERE id = $1 AND owner_id = $2`,
		id, owner,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// HasURL reports whether the owner already has a bookmark for the URL.
// Used by the startup importer to keep re-imports idempotent.
func (s *Store) HasURL(ctx context.Context, owner uuid.UUID, url string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookmarks WHERE owner_id = $1 AND url = $2
		)`,
		owner, url,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return exists, nil
}

func scanBookmark(row pgx.Row) (*domain.Bookmark, error) {
	var (
		b       domain.Bookmark
		title   *string
		summary *string
		favicon *string
	)

	err := row.Scan(&b.ID, &b.OwnerID, &b.URL, &title, &summary, &b.Tags, &favicon, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	if title != nil {
		b.Title = *title
	}
	if summary != nil {
		b.Summary = *summary
	}
	if favicon != nil {
		b.FaviconURL = *favicon
	}
	return &b, nil
}

// nullable maps "" to SQL NULL so optional fields round-trip as null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
