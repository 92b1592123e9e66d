package config

import (
	"os"
	"strings"
)

func envFlag(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// OutboxDispatcherEnabled runs the Pub/Sub outbox dispatcher inside the API
// process. Disable it when a separate worker publishes.
//
// Set via env:
// - OUTBOX_DISPATCHER_ENABLED=false
func OutboxDispatcherEnabled() bool {
	return envFlag("OUTBOX_DISPATCHER_ENABLED", true)
}

// RateLimitEnabled turns on the Redis fixed-window limiter.
//
// Set via env:
// - RATE_LIMIT_ENABLED=true
func RateLimitEnabled() bool {
	return envFlag("RATE_LIMIT_ENABLED", false)
}

// SkipMigrations leaves schema changes to a separate job (SKIP_MIGRATIONS=true).
func SkipMigrations() bool {
	return envFlag("SKIP_MIGRATIONS", false)
}
