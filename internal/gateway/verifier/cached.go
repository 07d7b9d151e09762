package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cacheEntry struct {
	subject   string
	expiresAt time.Time
}

// Cached remembers successful verifications for at most ttl and never past
// the token's own exp. Rejections are not cached.
type Cached struct {
	next    Verifier
	ttl     time.Duration
	cache   *expirable.LRU[string, cacheEntry]
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewCached(next Verifier, size int, ttl time.Duration, m *metrics.Metrics) *Cached {
	return &Cached{
		next:    next,
		ttl:     ttl,
		cache:   expirable.NewLRU[string, cacheEntry](size, nil, ttl),
		metrics: m,
		now:     time.Now,
	}
}

func (c *Cached) Verify(ctx context.Context, token string) (string, error) {
	key := cacheKey(token)

	if e, ok := c.cache.Get(key); ok {
		if c.now().Before(e.expiresAt) {
			c.metrics.VerifyCache(true)
			return e.subject, nil
		}
		c.cache.Remove(key)
	}
	c.metrics.VerifyCache(false)

	sub, err := c.next.Verify(ctx, token)
	if err != nil {
		return "", err
	}

	expiresAt := c.now().Add(c.ttl)
	if exp, ok := tokenExpiry(token); ok && exp.Before(expiresAt) {
		expiresAt = exp
	}
	c.cache.Add(key, cacheEntry{subject: sub, expiresAt: expiresAt})
	return sub, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// tokenExpiry reads exp without checking the signature; the token has
// already been verified by the wrapped verifier.
func tokenExpiry(token string) (time.Time, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
