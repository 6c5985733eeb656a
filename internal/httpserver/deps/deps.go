package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/digest/internal/domain"
	"github.com/MrSnakeDoc/digest/internal/logger"
	"github.com/MrSnakeDoc/digest/internal/reader"
	"github.com/MrSnakeDoc/digest/internal/store"
)

// Cache is the slice of the Redis layer the handlers use. A nil Cache
// disables enrichment caching and idempotent creates; nothing else
// depends on it.
type Cache interface {
	GetPage(ctx context.Context, url string) (*domain.PageMetadata, error)
	SavePage(ctx context.Context, url string, meta *domain.PageMetadata, ttl time.Duration) error
	ReserveToken(ctx context.Context, owner, token, bookmarkID string, ttl time.Duration) (bool, error)
	LookupToken(ctx context.Context, owner, token string) (string, error)
	RemapToken(ctx context.Context, owner, token, bookmarkID string, ttl time.Duration) error
	ReleaseToken(ctx context.Context, owner, token string) error
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time    // for testing, defaults to time.Now
	Store          store.BookmarkStore // bookmark persistence
	StorePing      func() error        // nil when no pool is wired (tests)
	Cache          Cache               // nil when redis is disabled
	Reader         *reader.Client      // page content extraction upstream
	FaviconBase    string              // favicon service base URL
	CacheTTL       time.Duration       // TTL for cached page metadata
	IdempotencyTTL time.Duration       // TTL for idempotency reservations
	AuthSecret     string              // HMAC secret for bearer tokens
	TrustProxy     bool                // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateBurst      int                 // token bucket capacity for the extraction endpoint
	RatePerMin     int                 // token refill per client IP per minute
}
