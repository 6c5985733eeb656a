package rediscache

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// KeyPrefixPage is the prefix for cached page metadata keys
	KeyPrefixPage = "digest:page:"
	// KeyPrefixIdem is the prefix for create idempotency tokens
	KeyPrefixIdem = "digest:idem:"
)

// PageKey returns the Redis key for a URL's cached metadata.
// The key embeds a stable hash so the same URL always maps to the same
// entry regardless of length or characters.
func PageKey(url string) string {
	return KeyPrefixPage + stableHash(url)
}

// IdemKey returns the Redis key reserving an idempotency token for an owner.
func IdemKey(owner, token string) string {
	return KeyPrefixIdem + owner + ":" + stableHash(token)
}

// stableHash returns the first 16 hex characters of the SHA-256 of s,
// which is plenty for uniqueness here.
func stableHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
