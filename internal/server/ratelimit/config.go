package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rule limits one route. Path is a pattern whose "*" segments match any
// single path segment, so "/sessions/*/generate" covers every session.
type Rule struct {
	Path   string
	Method string
	Limit  int           // Requests per window
	Window time.Duration // Refill window
	Burst  int           // Bucket capacity; Limit when zero
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration
	Allow           map[string]bool
	Deny            map[string]bool
	Rules           []Rule
}

// LoadConfig reads the RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	if !envBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envInt("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   envDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: envDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         envDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Allow:           parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Deny:            parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		Rules:           DefaultRules(),
	}
}

// DefaultRules returns the per-route limits. Generation calls the model once
// per lesson, so it is the tightest; opening a session scans every quest.
func DefaultRules() []Rule {
	return []Rule{
		{Path: "/sessions/*/generate", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/sessions/*/commit", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/sessions", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},
	}
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
