package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/digest/internal/domain"
	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
	"github.com/MrSnakeDoc/digest/internal/logger"
	"github.com/MrSnakeDoc/digest/internal/reader"
)

type processURLRequest struct {
	URL string `json:"url"`
}

type processURLResponse struct {
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	FaviconURL   string `json:"faviconUrl"`
	ProcessedURL string `json:"processedUrl"`
}

// ProcessURL proxies a page through the content-extraction upstream and
// returns derived metadata. The endpoint is unauthenticated; persistence
// is a separate, authenticated step.
func ProcessURL(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		// A malformed or empty body leaves URL blank and falls through
		// to the missing-input response.
		var req processURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req.URL = ""
		}

		target := strings.TrimSpace(req.URL)
		if target == "" {
			writeError(w, http.StatusBadRequest, "URL is required")
			return
		}

		if !d.Reader.Configured() {
			d.Logger.Error("extraction requested without an API key")
			writeError(w, http.StatusInternalServerError, "Jina AI API key not configured")
			return
		}

		// Cache first. A hit skips the metered upstream entirely.
		if d.Cache != nil {
			if meta, err := d.Cache.GetPage(ctx, target); err != nil {
				d.Logger.Warn("metadata cache read failed", logger.Error(err))
			} else if meta != nil {
				d.Logger.Debug("metadata cache hit", logger.String("url", target))
				writeJSON(w, http.StatusOK, processURLResponse{
					Title:        meta.Title,
					Summary:      meta.Summary,
					FaviconURL:   meta.FaviconURL,
					ProcessedURL: target,
				})
				return
			}
		}

		text, err := d.Reader.Extract(ctx, target)
		if err != nil {
			var upstream *reader.UpstreamError
			if errors.As(err, &upstream) {
				d.Logger.Error("extraction upstream rejected request",
					logger.String("url", target),
					logger.Int("status", upstream.Status),
					logger.String("reason", upstream.Reason))
			} else {
				d.Logger.Error("extraction upstream unreachable",
					logger.String("url", target),
					logger.Error(err))
			}
			writeError(w, http.StatusInternalServerError, "Failed to process URL with Jina AI")
			return
		}

		meta := domain.DeriveMetadata(d.FaviconBase, target, text)

		if d.Cache != nil {
			if err := d.Cache.SavePage(ctx, target, &meta, d.CacheTTL); err != nil {
				d.Logger.Warn("metadata cache write failed", logger.Error(err))
			}
		}

		d.Logger.Info("url processed",
			logger.String("url", target),
			logger.String("title", meta.Title))

		writeJSON(w, http.StatusOK, processURLResponse{
			Title:        meta.Title,
			Summary:      meta.Summary,
			FaviconURL:   meta.FaviconURL,
			ProcessedURL: target,
		})
	}
}
