package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API key is configured. Checked
// before any network call so a misconfigured deployment fails fast.
var ErrNotConfigured = errors.New("reader API key not configured")

// UpstreamError reports a non-success response from the extraction
// service. Status and reason are for server-side logs only; callers must
// not forward them to clients.
type UpstreamError struct {
	Status int
	Reason string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("reader upstream returned %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("reader upstream unreachable: %s", e.Reason)
}

// Client calls the content-extraction service (Jina reader). The service
// fetches a page and returns its extracted text as text/plain; the first
// line is usually the page title.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a reader client. timeout bounds each upstream call.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Extract fetches the extracted text for target. It retries once on a
// transient failure (transport error or 502/503/504); anything still
// failing after that surfaces as *UpstreamError.
func (c *Client) Extract(ctx context.Context, target string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	text, err := c.fetch(ctx, target)
	if err != nil && transient(err) && ctx.Err() == nil {
		text, err = c.fetch(ctx, target)
	}
	return text, err
}

func (c *Client) fetch(ctx context.Context, target string) (string, error) {
	// The target rides in a path segment, so spaces must become %20,
	// not the query form "+".
	endpoint := c.baseURL + "/" + url.PathEscape(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build reader request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UpstreamError{Reason: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body for the log line, never for the caller.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", &UpstreamError{
			Status: resp.StatusCode,
			Reason: strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Reason: err.Error()}
	}
	return string(body), nil
}

// transient reports whether err is worth a single retry: transport
// failures and gateway-style statuses, not client errors.
func transient(err error) bool {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	switch ue.Status {
	case 0, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
