package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bookmark represents a single saved link.
// A bookmark belongs to exactly one owner and is never mutated in place:
// it is created once and destroyed by an explicit delete.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier, generated at creation.
	ID uuid.UUID `json:"id"`

	// OwnerID identifies the user who created the bookmark.
	// Every read and delete is scoped by it.
	OwnerID uuid.UUID `json:"-"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// URL is the saved link. The only required field at creation.
	URL string `json:"url"`

	// Title is user-supplied or derived by the enrichment step.
	// Empty means "Untitled" at display time.
	Title string `json:"title,omitempty"`

	// Summary is free text, at most SummaryLimit characters.
	Summary string `json:"summary,omitempty"`

	// Tags is a duplicate-free set of short labels. Display order
	// carries no meaning.
	Tags []string `json:"tags,omitempty"`

	// FaviconURL is derived from the URL hostname via the favicon
	// service. Never re-validated.
	FaviconURL string `json:"faviconUrl,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is the creation timestamp and the default sort key
	// (descending, newest first).
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayTitle returns the title, or "Untitled" when none was set.
func (b *Bookmark) DisplayTitle() string {
	if strings.TrimSpace(b.Title) == "" {
		return "Untitled"
	}
	return b.Title
}

// NormalizeTags trims entries, drops empties and removes duplicates
// while preserving first-seen order. Re-adding an existing tag is a no-op.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
