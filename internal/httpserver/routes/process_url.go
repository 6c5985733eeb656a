package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/digest/internal/httpserver/deps"
	"github.com/MrSnakeDoc/digest/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/digest/internal/httpserver/mw"
)

func init() { Register(registerProcessURL) }

// The extraction proxy is rate limited per client IP and deliberately
// unauthenticated; it never touches the store.
func registerProcessURL(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateBurst,
		RefillPerIPPerMin: d.RatePerMin,
		TrustProxy:        d.TrustProxy,
	})
	r.With(limit).Post("/api/process-url", handlers.ProcessURL(d))
}
