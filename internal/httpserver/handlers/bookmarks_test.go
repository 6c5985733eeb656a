package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/digest/internal/domain"
	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
	"github.com/MrSnakeDoc/digest/internal/httpserver/mw"
	"github.com/MrSnakeDoc/digest/internal/logger"
	"github.com/MrSnakeDoc/digest/internal/store"
)

// fakeStore is an in-memory BookmarkStore with per-method error injection.
type fakeStore struct {
	bookmarks []*domain.Bookmark
	failWith  error
}

func (f *fakeStore) List(_ context.Context, owner uuid.UUID) ([]*domain.Bookmark, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []*domain.Bookmark
	for _, b := range f.bookmarks {
		if b.OwnerID == owner {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id, owner uuid.UUID) (*domain.Bookmark, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, b := range f.bookmarks {
		if b.ID == id && b.OwnerID == owner {
			return b, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, b *domain.Bookmark) (*domain.Bookmark, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	stored := *b
	stored.CreatedAt = time.Now()
	f.bookmarks = append(f.bookmarks, &stored)
	return &stored, nil
}

func (f *fakeStore) Delete(_ context.Context, id, owner uuid.UUID) error {
	if f.failWith != nil {
		return f.failWith
	}
	for i, b := range f.bookmarks {
		if b.ID == id && b.OwnerID == owner {
			f.bookmarks = append(f.bookmarks[:i], f.bookmarks[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeCache is an in-memory deps.Cache covering the idempotency flow.
type fakeCache struct {
	pages      map[string]*domain.PageMetadata
	tokens     map[string]string
	reserveErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		pages:  map[string]*domain.PageMetadata{},
		tokens: map[string]string{},
	}
}

func (f *fakeCache) GetPage(_ context.Context, url string) (*domain.PageMetadata, error) {
	return f.pages[url], nil
}

func (f *fakeCache) SavePage(_ context.Context, url string, meta *domain.PageMetadata, _ time.Duration) error {
	f.pages[url] = meta
	return nil
}

func (f *fakeCache) ReserveToken(_ context.Context, owner, token, bookmarkID string, _ time.Duration) (bool, error) {
	if f.reserveErr != nil {
		return false, f.reserveErr
	}
	key := owner + "/" + token
	if _, taken := f.tokens[key]; taken {
		return false, nil
	}
	f.tokens[key] = bookmarkID
	return true, nil
}

func (f *fakeCache) LookupToken(_ context.Context, owner, token string) (string, error) {
	return f.tokens[owner+"/"+token], nil
}

func (f *fakeCache) RemapToken(_ context.Context, owner, token, bookmarkID string, _ time.Duration) error {
	f.tokens[owner+"/"+token] = bookmarkID
	return nil
}

func (f *fakeCache) ReleaseToken(_ context.Context, owner, token string) error {
	delete(f.tokens, owner+"/"+token)
	return nil
}

func (f *fakeCache) Ping(context.Context) error { return nil }

func bookmarkDeps(s store.BookmarkStore) deps.Deps {
	return deps.Deps{
		Logger:      logger.New("error", false),
		Store:       s,
		FaviconBase: faviconBase,
	}
}

func asOwner(req *http.Request, owner uuid.UUID) *http.Request {
	return req.WithContext(mw.WithOwner(req.Context(), owner))
}

func seeded(owner uuid.UUID) *fakeStore {
	return &fakeStore{bookmarks: []*domain.Bookmark{
		{ID: uuid.New(), OwnerID: owner, URL: "https://go.dev", Title: "The Go Programming Language", Tags: []string{"dev", "reference"}},
		{ID: uuid.New(), OwnerID: owner, URL: "https://news.example.com", Title: "Daily News", Tags: []string{"news"}},
		{ID: uuid.New(), OwnerID: uuid.New(), URL: "https://other.example.com", Title: "Someone else's"},
	}}
}

func TestListBookmarks(t *testing.T) {
	owner := uuid.New()
	d := bookmarkDeps(seeded(owner))

	tests := []struct {
		name       string
		query      string
		wantURLs   []string
		wantTagSet []string
	}{
		{
			name:       "no filters returns the owner's full set",
			query:      "",
			wantURLs:   []string{"https://go.dev", "https://news.example.com"},
			wantTagSet: []string{"dev", "reference", "news"},
		},
		{
			name:       "text filter narrows by title",
			query:      "q=go",
			wantURLs:   []string{"https://go.dev"},
			wantTagSet: []string{"dev", "reference", "news"},
		},
		{
			name:       "tag filter narrows by selection",
			query:      "tags=news",
			wantURLs:   []string{"https://news.example.com"},
			wantTagSet: []string{"dev", "reference", "news"},
		},
		{
			name:       "no match yields empty list, full tag union",
			query:      "q=nomatch",
			wantURLs:   []string{},
			wantTagSet: []string{"dev", "reference", "news"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asOwner(httptest.NewRequest(http.MethodGet, "/api/bookmarks?"+tt.query, nil), owner)
			rec := httptest.NewRecorder()
			ListBookmarks(d)(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			var resp listBookmarksResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			urls := make([]string, 0, len(resp.Bookmarks))
			for _, b := range resp.Bookmarks {
				urls = append(urls, b.URL)
			}
			require.Equal(t, tt.wantURLs, urls)
			require.ElementsMatch(t, tt.wantTagSet, resp.Tags)
		})
	}
}

func TestListBookmarksWithoutOwner(t *testing.T) {
	d := bookmarkDeps(&fakeStore{})
	rec := httptest.NewRecorder()
	ListBookmarks(d)(rec, httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListBookmarksStoreDown(t *testing.T) {
	d := bookmarkDeps(&fakeStore{failWith: store.ErrUnavailable})
	rec := httptest.NewRecorder()
	ListBookmarks(d)(rec, asOwner(httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil), uuid.New()))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"error":"storage unavailable"}`, rec.Body.String())
}

func TestCreateBookmark(t *testing.T) {
	owner := uuid.New()
	fs := &fakeStore{}
	d := bookmarkDeps(fs)

	body := `{"url":"https://Example.com/post","title":" My Post ","summary":"short one","tags":[" a","b","a",""]}`
	req := asOwner(httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	CreateBookmark(d)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotEqual(t, uuid.Nil, got.ID)
	require.Equal(t, "https://Example.com/post", got.URL)
	require.Equal(t, "My Post", got.Title)
	require.Equal(t, "short one", got.Summary)
	require.Equal(t, []string{"a", "b"}, got.Tags)
	require.Equal(t, faviconBase+"?domain=example.com&sz=64", got.FaviconURL)
	require.False(t, got.CreatedAt.IsZero())
	require.Len(t, fs.bookmarks, 1)
	require.Equal(t, owner, fs.bookmarks[0].OwnerID)
}

func TestCreateBookmarkClampsSummary(t *testing.T) {
	owner := uuid.New()
	d := bookmarkDeps(&fakeStore{})

	long := strings.Repeat("x", domain.SummaryLimit+50)
	body := `{"url":"https://example.com","summary":"` + long + `"}`
	req := asOwner(httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(body)), owner)
	rec := httptest.NewRecorder()
	CreateBookmark(d)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Summary, domain.SummaryLimit)
}

func TestCreateBookmarkValidation(t *testing.T) {
	d := bookmarkDeps(&fakeStore{})
	owner := uuid.New()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing url", `{"title":"no url"}`, "URL is required"},
		{"blank url", `{"url":"   "}`, "URL is required"},
		{"relative url", `{"url":"/just/a/path"}`, "must be an absolute URL"},
		{"malformed body", `{"url":`, "URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asOwner(httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(tt.body)), owner)
			rec := httptest.NewRecorder()
			CreateBookmark(d)(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.JSONEq(t, `{"error":"`+tt.wantMsg+`"}`, rec.Body.String())
		})
	}
}

func postCreate(h http.HandlerFunc, owner uuid.UUID, idemKey, body string) *httptest.ResponseRecorder {
	req := asOwner(httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(body)), owner)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateBookmarkIdempotentReplay(t *testing.T) {
	owner := uuid.New()
	fs := &fakeStore{}
	fc := newFakeCache()
	d := bookmarkDeps(fs)
	d.Cache = fc
	d.IdempotencyTTL = time.Hour

	body := `{"url":"https://example.com/once"}`

	rec := postCreate(CreateBookmark(d), owner, "submit-1", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var first domain.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	// Same key again: the original row comes back, nothing is inserted.
	rec = postCreate(CreateBookmark(d), owner, "submit-1", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var replayed domain.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replayed))
	require.Equal(t, first.ID, replayed.ID)
	require.Len(t, fs.bookmarks, 1)

	// A different key inserts normally.
	rec = postCreate(CreateBookmark(d), owner, "submit-2", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fs.bookmarks, 2)
}

func TestCreateBookmarkReleasesTokenOnStoreFailure(t *testing.T) {
	owner := uuid.New()
	fs := &fakeStore{failWith: store.ErrUnavailable}
	fc := newFakeCache()
	d := bookmarkDeps(fs)
	d.Cache = fc
	d.IdempotencyTTL = time.Hour

	body := `{"url":"https://example.com/flaky"}`

	rec := postCreate(CreateBookmark(d), owner, "retry-me", body)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Empty(t, fc.tokens, "failed insert must release its reservation")

	// The store recovers; the same key must now go through.
	fs.failWith = nil
	rec = postCreate(CreateBookmark(d), owner, "retry-me", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fs.bookmarks, 1)
}

func TestCreateBookmarkRemapsStaleReservation(t *testing.T) {
	owner := uuid.New()
	fs := &fakeStore{}
	fc := newFakeCache()
	// A reservation survived but its row is gone.
	fc.tokens[owner.String()+"/stale"] = uuid.NewString()
	d := bookmarkDeps(fs)
	d.Cache = fc
	d.IdempotencyTTL = time.Hour

	body := `{"url":"https://example.com/recovered"}`

	rec := postCreate(CreateBookmark(d), owner, "stale", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, created.ID.String(), fc.tokens[owner.String()+"/stale"],
		"token must follow the fresh insert")

	// Replays after the recovery return the surviving row.
	rec = postCreate(CreateBookmark(d), owner, "stale", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var replayed domain.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &replayed))
	require.Equal(t, created.ID, replayed.ID)
	require.Len(t, fs.bookmarks, 1)
}

func TestCreateBookmarkSurvivesCacheOutage(t *testing.T) {
	owner := uuid.New()
	fs := &fakeStore{}
	fc := newFakeCache()
	fc.reserveErr = errors.New("connection refused")
	d := bookmarkDeps(fs)
	d.Cache = fc

	rec := postCreate(CreateBookmark(d), owner, "any-key", `{"url":"https://example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fs.bookmarks, 1)
}

func TestDeleteBookmark(t *testing.T) {
	owner := uuid.New()
	fs := seeded(owner)
	target := fs.bookmarks[0].ID
	foreign := fs.bookmarks[2].ID
	d := bookmarkDeps(fs)

	r := chi.NewRouter()
	r.Delete("/api/bookmarks/{id}", DeleteBookmark(d))

	del := func(id string) *httptest.ResponseRecorder {
		req := asOwner(httptest.NewRequest(http.MethodDelete, "/api/bookmarks/"+id, nil), owner)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := del(target.String())
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, fs.bookmarks, 2)

	// Same id again: already gone.
	require.Equal(t, http.StatusNotFound, del(target.String()).Code)

	// Foreign-owned id looks exactly like a missing one.
	rec = del(foreign.String())
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"bookmark not found"}`, rec.Body.String())
	require.Len(t, fs.bookmarks, 2)

	// Unparseable id is not distinguishable either.
	require.Equal(t, http.StatusNotFound, del("not-a-uuid").Code)
}
