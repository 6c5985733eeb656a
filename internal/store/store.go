package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/digest/internal/domain"
)

var (
	// ErrNotFound is returned when no bookmark matches the id within the
	// owner's scope. A foreign-owned id is indistinguishable from a
	// missing one.
	ErrNotFound = errors.New("bookmark not found")

	// ErrUnavailable is returned when the persistence layer is
	// unreachable or rejected the operation.
	ErrUnavailable = errors.New("storage unavailable")
)

// BookmarkStore is the only interface through which bookmarks are
// created, listed and deleted. Every operation is scoped to an owner.
type BookmarkStore interface {
	// List returns all bookmarks for the owner, newest first.
	List(ctx context.Context, owner uuid.UUID) ([]*domain.Bookmark, error)

	// Get returns a single bookmark within the owner's scope.
	Get(ctx context.Context, id, owner uuid.UUID) (*domain.Bookmark, error)

	// Create persists a new bookmark and returns the stored row,
	// including the server-assigned creation timestamp.
	Create(ctx context.Context, b *domain.Bookmark) (*domain.Bookmark, error)

	// Delete removes exactly one bookmark within the owner's scope.
	// Returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id, owner uuid.UUID) error
}
