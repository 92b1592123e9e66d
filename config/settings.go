package config

import (
	"os"
	"strings"
	"time"
)

// SettlementLockTTL bounds how long the best-effort Redis lock around an order
// settlement is held.
//
// Set via env:
// - SETTLEMENT_LOCK_TTL_SECONDS (default 30)
func SettlementLockTTL() time.Duration {
	return time.Duration(intFromEnv("SETTLEMENT_LOCK_TTL_SECONDS", 30)) * time.Second
}

// BookingSlotGranularity is the step between candidate booking slots.
//
// Set via env:
// - BOOKING_SLOT_MINUTES (default 30)
func BookingSlotGranularity() time.Duration {
	minutes := intFromEnv("BOOKING_SLOT_MINUTES", 30)
	if minutes <= 0 {
		minutes = 30
	}
	return time.Duration(minutes) * time.Minute
}

// ShopLocation is the timezone booking windows are expressed in.
// Falls back to UTC when SHOP_TIMEZONE is empty or unknown.
func ShopLocation() *time.Location {
	name := strings.TrimSpace(os.Getenv("SHOP_TIMEZONE"))
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func CurrencySymbol() string {
	if v := strings.TrimSpace(os.Getenv("CURRENCY_SYMBOL")); v != "" {
		return v
	}
	return "$"
}

// ReconciliationSchedule is a standard 5-field cron spec; "off" disables the job.
func ReconciliationSchedule() string {
	if v := strings.TrimSpace(os.Getenv("RECONCILIATION_CRON")); v != "" {
		return v
	}
	return "0 3 * * *"
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// ReportCacheEnabled caches settled-order distribution reports in Redis.
//
// Set via env:
// - ENABLE_REPORT_CACHE=true
// - REPORT_CACHE_TTL_SECONDS (default 600)
func ReportCacheEnabled() bool {
	return envFlag("ENABLE_REPORT_CACHE", false)
}

func ReportCacheTTL() time.Duration {
	ttl := intFromEnv("REPORT_CACHE_TTL_SECONDS", 600)
	if ttl <= 0 {
		ttl = 600
	}
	return time.Duration(ttl) * time.Second
}

// ReportSlowThreshold is the duration above which report builds log a warning (REPORT_SLOW_MS, default 500).
func ReportSlowThreshold() time.Duration {
	ms := intFromEnv("REPORT_SLOW_MS", 500)
	if ms <= 0 {
		ms = 500
	}
	return time.Duration(ms) * time.Millisecond
}

// RateLimitPolicy returns the per-IP request budget and its window.
//
// Set via env:
// - RATE_LIMIT_MAX_REQUESTS (default 600)
// - RATE_LIMIT_WINDOW_SECONDS (default 60)
func RateLimitPolicy() (int64, time.Duration) {
	limit := intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600)
	if limit <= 0 {
		limit = 600
	}
	window := intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)
	if window <= 0 {
		window = 60
	}
	return int64(limit), time.Duration(window) * time.Second
}

// CORSAllowedOrigins parses the comma-separated CORS_ALLOWED_ORIGINS list.
func CORSAllowedOrigins() []string {
	var out []string
	for _, p := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
