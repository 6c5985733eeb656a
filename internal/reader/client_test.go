package reader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtract_NotConfigured(t *testing.T) {
	c := New("https://r.example", "", time.Second)

	_, err := c.Extract(context.Background(), "https://a.test")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestExtract_Success(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("My Title\nBody content here."))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	text, err := c.Extract(context.Background(), "https://a.test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "My Title\nBody content here." {
		t.Errorf("unexpected text: %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
}

func TestExtract_EscapesTargetAsPathSegment(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	if _, err := c.Extract(context.Background(), "https://a.test/some page?q=1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotURI, "%20") {
		t.Errorf("space must be escaped as %%20 in the path, got %q", gotURI)
	}
	if strings.Contains(gotURI, "+") {
		t.Errorf("query-style plus escaping corrupts the target, got %q", gotURI)
	}
}

func TestExtract_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	_, err := c.Extract(context.Background(), "https://a.test")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", ue.Status)
	}
}

func TestExtract_RetriesOnceOn503(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("Recovered Title"))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	text, err := c.Extract(context.Background(), "https://a.test")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if text != "Recovered Title" {
		t.Errorf("unexpected text: %q", text)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 upstream calls, got %d", calls)
	}
}

func TestExtract_NoRetryOnClientError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	if _, err := c.Extract(context.Background(), "https://a.test"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls)
	}
}

func TestExtract_SingleRetryOnPersistentFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", time.Second)

	_, err := c.Extract(context.Background(), "https://a.test")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 upstream calls (one retry), got %d", calls)
	}
}
