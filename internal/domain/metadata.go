package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// SummaryLimit is the maximum number of characters kept from an
// extraction response before storage.
const SummaryLimit = 1000

// FaviconSize is the fixed icon size requested from the favicon service.
const FaviconSize = 64

// PageMetadata is the enrichment derived from an extraction response.
type PageMetadata struct {
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	FaviconURL string `json:"faviconUrl"`
}

// TitleFromText derives a title from raw extraction text: the first
// non-empty line, trimmed. Falls back to "Untitled" when every line is
// blank. The first line of reader output is usually the page title; a
// leading boilerplate line will win, which matches the observed upstream
// behavior.
func TitleFromText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "Untitled"
}

// TruncateSummary clamps raw extraction text to SummaryLimit characters.
// The cut falls on a rune boundary so multibyte text survives intact.
func TruncateSummary(text string) string {
	count := 0
	for i := range text {
		if count == SummaryLimit {
			return text[:i]
		}
		count++
	}
	return text
}

// FaviconURL derives the favicon service URL for a bookmark URL.
// It is a deterministic function of the lowercased hostname only.
// Returns "" when the URL has no parseable hostname.
func FaviconURL(serviceBase, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}

	q := url.Values{}
	q.Set("domain", strings.ToLower(u.Hostname()))
	q.Set("sz", strconv.Itoa(FaviconSize))
	return serviceBase + "?" + q.Encode()
}

// DeriveMetadata applies all derivation rules to a raw extraction
// response for the given URL.
func DeriveMetadata(faviconBase, rawURL, text string) PageMetadata {
	return PageMetadata{
		Title:      TitleFromText(text),
		Summary:    TruncateSummary(text),
		FaviconURL: FaviconURL(faviconBase, rawURL),
	}
}
