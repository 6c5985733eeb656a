package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/digest/internal/domain"
	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
	"github.com/MrSnakeDoc/digest/internal/httpserver/mw"
	"github.com/MrSnakeDoc/digest/internal/logger"
	"github.com/MrSnakeDoc/digest/internal/store"
)

type createBookmarkRequest struct {
	URL     string   `json:"url"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

func (req createBookmarkRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.URL,
			validation.Required.Error("URL is required"),
			validation.By(absoluteURL),
		),
	)
}

func absoluteURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

type listBookmarksResponse struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks"`
	Tags      []string           `json:"tags"`
}

// ListBookmarks returns the caller's bookmarks, newest first, filtered
// in-process by the optional q and tags query parameters. The tag union
// is computed over the full set so the client can always render every
// selectable tag.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := mw.OwnerFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing owner identity")
			return
		}

		all, err := d.Store.List(ctx, owner)
		if err != nil {
			storeFailure(w, d, "list bookmarks failed", err)
			return
		}

		term := strings.TrimSpace(r.URL.Query().Get("q"))
		selected := splitTags(r.URL.Query().Get("tags"))

		filtered := domain.Filter(all, term, selected)
		if filtered == nil {
			filtered = []*domain.Bookmark{}
		}
		tags := domain.AvailableTags(all)
		if tags == nil {
			tags = []string{}
		}

		writeJSON(w, http.StatusOK, listBookmarksResponse{
			Bookmarks: filtered,
			Tags:      tags,
		})
	}
}

// CreateBookmark persists a new bookmark for the caller and returns the
// stored row. An optional Idempotency-Key header makes retries safe: a
// replay with the same key returns the originally created row.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := mw.OwnerFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing owner identity")
			return
		}

		var req createBookmarkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "URL is required")
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if err := req.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(err))
			return
		}

		id := uuid.New()
		idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

		// reservedHere: this request holds the token and may release it
		// on failure. remapNeeded: a stale reservation points at a row
		// that no longer exists, so the token must follow the fresh
		// insert or every later replay would insert again.
		var reservedHere, remapNeeded bool
		if idemKey != "" && d.Cache != nil {
			reserved, err := d.Cache.ReserveToken(ctx, owner.String(), idemKey, id.String(), d.IdempotencyTTL)
			switch {
			case err != nil:
				// Redis outage: creation proceeds without replay protection.
				d.Logger.Warn("idempotency reservation failed", logger.Error(err))
				idemKey = ""
			case reserved:
				reservedHere = true
			default:
				if b := replayedBookmark(r, d, owner, idemKey); b != nil {
					writeJSON(w, http.StatusOK, b)
					return
				}
				remapNeeded = true
			}
		}

		b := &domain.Bookmark{
			ID:         id,
			OwnerID:    owner,
			URL:        req.URL,
			Title:      strings.TrimSpace(req.Title),
			Summary:    domain.TruncateSummary(req.Summary),
			Tags:       domain.NormalizeTags(req.Tags),
			FaviconURL: domain.FaviconURL(d.FaviconBase, req.URL),
		}

		created, err := d.Store.Create(ctx, b)
		if err != nil {
			if reservedHere {
				_ = d.Cache.ReleaseToken(ctx, owner.String(), idemKey)
			}
			storeFailure(w, d, "create bookmark failed", err)
			return
		}
		if remapNeeded {
			if err := d.Cache.RemapToken(ctx, owner.String(), idemKey, created.ID.String(), d.IdempotencyTTL); err != nil {
				d.Logger.Warn("idempotency remap failed", logger.Error(err))
			}
		}

		d.Logger.Info("bookmark created",
			logger.String("id", created.ID.String()),
			logger.String("url", created.URL))

		writeJSON(w, http.StatusCreated, created)
	}
}

// DeleteBookmark removes one of the caller's bookmarks. An id owned by
// someone else is reported exactly like a missing one.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := mw.OwnerFromContext(ctx)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing owner identity")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
			return
		}

		if err := d.Store.Delete(ctx, id, owner); err != nil {
			storeFailure(w, d, "delete bookmark failed", err)
			return
		}

		d.Logger.Info("bookmark deleted", logger.String("id", id.String()))
		w.WriteHeader(http.StatusNoContent)
	}
}

// replayedBookmark resolves an already-reserved idempotency token to the
// row it produced. Any failure along the way returns nil so the caller
// falls back to a fresh insert.
func replayedBookmark(r *http.Request, d deps.Deps, owner uuid.UUID, idemKey string) *domain.Bookmark {
	ctx := r.Context()

	existingID, err := d.Cache.LookupToken(ctx, owner.String(), idemKey)
	if err != nil || existingID == "" {
		return nil
	}
	id, err := uuid.Parse(existingID)
	if err != nil {
		return nil
	}
	b, err := d.Store.Get(ctx, id, owner)
	if err != nil {
		return nil
	}

	d.Logger.Info("idempotent create replayed",
		logger.String("id", existingID))
	return b
}

// storeFailure maps store sentinels onto the HTTP boundary.
func storeFailure(w http.ResponseWriter, d deps.Deps, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
	case errors.Is(err, store.ErrUnavailable):
		d.Logger.Error(msg, logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, store.ErrUnavailable.Error())
	default:
		d.Logger.Error(msg, logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// validationMessage flattens an ozzo validation result to the message of
// the first failing field.
func validationMessage(err error) string {
	var errs validation.Errors
	if errors.As(err, &errs) {
		for _, fieldErr := range errs {
			return fieldErr.Error()
		}
	}
	return err.Error()
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
