package api

import (
	"context"

	domainerrors "github.com/Sarcastic-Soul/blog-app/internal/errors"
	"github.com/Sarcastic-Soul/blog-app/internal/ratelimit"
)

// newLimiter creates a per-client limiter allowing perMinute requests a
// minute with a burst of the same size, falling back to def when perMinute
// is unset.
func newLimiter(perMinute, def int) *ratelimit.KeyedRateLimiter {
	if perMinute <= 0 {
		perMinute = def
	}
	return ratelimit.NewWithTTL(float64(perMinute)/60, perMinute, limiterIdleTTL)
}

// allow checks the caller's address against limiter. The key is scoped so
// one client's likes do not consume its views.
func (s *Server) allow(ctx context.Context, limiter *ratelimit.KeyedRateLimiter, scope string) bool {
	key := scope + ":" + clientInfo(ctx).IPAddress
	if limiter.Allow(key) {
		return true
	}
	s.logger.Warn("rate limit exceeded", "scope", scope, "ip", clientInfo(ctx).IPAddress)
	return false
}

func rateLimited() error {
	return domainerrors.RateLimited("too many requests, please try again later")
}
