package api

import "time"

// API limits and constants.
const (
	// DefaultPageSize applies when a listing omits limit.
	DefaultPageSize = 20
	// MaxPageSize caps limit on listings.
	MaxPageSize = 100
)

// SessionCookie carries the session token for browser clients.
const SessionCookie = "quack_session"

// Cache-Control header values.
const (
	CacheOneWeek = "public, max-age=604800"
	CacheNoStore = "no-store"
)

// Default rate limits when Options leaves them unset.
const (
	defaultCountersPerMinute = 30
	defaultLoginsPerMinute   = 10
	limiterIdleTTL           = 10 * time.Minute
)
