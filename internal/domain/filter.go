package domain

import "strings"

// The filter engine derives the visible subset of a loaded bookmark list
// from two independent filters: a free-text search term and a selected-tag
// set. Both are applied in memory against the full list; ordering of the
// input is preserved.

// MatchesText reports whether the bookmark passes the free-text filter.
// Matching is a case-insensitive substring check against title, summary,
// URL and every tag. An empty term passes everything.
func MatchesText(b *Bookmark, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}

	if strings.Contains(strings.ToLower(b.Title), term) ||
		strings.Contains(strings.ToLower(b.Summary), term) ||
		strings.Contains(strings.ToLower(b.URL), term) {
		return true
	}

	for _, tag := range b.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// MatchesTags reports whether the bookmark passes the tag filter.
// It passes when the selected set is empty, or when the bookmark's tag set
// intersects it (OR across selected tags, not AND).
func MatchesTags(b *Bookmark, selected []string) bool {
	if len(selected) == 0 {
		return true
	}

	for _, tag := range b.Tags {
		for _, want := range selected {
			if tag == want {
				return true
			}
		}
	}
	return false
}

// Filter returns the subsequence of bookmarks passing both the text and
// the tag filter, in input order.
func Filter(bookmarks []*Bookmark, term string, selected []string) []*Bookmark {
	out := make([]*Bookmark, 0, len(bookmarks))
	for _, b := range bookmarks {
		if MatchesText(b, term) && MatchesTags(b, selected) {
			out = append(out, b)
		}
	}
	return out
}

// AvailableTags returns the deduplicated union of every tag across the
// given bookmarks. No ordering is guaranteed beyond first appearance.
func AvailableTags(bookmarks []*Bookmark) []string {
	seen := make(map[string]bool)
	tags := make([]string, 0)
	for _, b := range bookmarks {
		for _, tag := range b.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
