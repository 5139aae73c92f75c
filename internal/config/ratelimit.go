package config

import (
    "os"
    "strconv"
    "time"
)

// RateLimitConfig drives the Redis token bucket.  Two profiles are loaded:
// the general API profile and a stricter one for unauthenticated endpoints
// (login, register and public QR certification).
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // "ip", "user", "ip_route" or "ip_user_route"
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig returns the general API profile.
func LoadRateLimitConfig() RateLimitConfig {
    return loadRateLimit("RATE_LIMIT", RateLimitConfig{
        Enabled:        true,
        Capacity:       60,
        RefillTokens:   1,
        RefillInterval: time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_user_route",
        Prefix:         "rl",
    })
}

// LoadPublicRateLimitConfig returns the profile applied to unauthenticated
// routes.  Variables use the PUBLIC_RATE_LIMIT_ prefix.
func LoadPublicRateLimitConfig() RateLimitConfig {
    return loadRateLimit("PUBLIC_RATE_LIMIT", RateLimitConfig{
        Enabled:        true,
        Capacity:       10,
        RefillTokens:   1,
        RefillInterval: 6 * time.Second,
        TTL:            10 * time.Minute,
        KeyStrategy:    "ip_route",
        Prefix:         "rlpub",
    })
}

func loadRateLimit(prefix string, def RateLimitConfig) RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool(prefix+"_ENABLED", def.Enabled),
        Capacity:       envInt(prefix+"_CAPACITY", def.Capacity),
        RefillTokens:   envInt(prefix+"_REFILL_TOKENS", def.RefillTokens),
        RefillInterval: envDur(prefix+"_REFILL_INTERVAL", def.RefillInterval),
        TTL:            envDur(prefix+"_TTL", def.TTL),
        KeyStrategy:    envStr(prefix+"_KEY_STRATEGY", def.KeyStrategy),
        Prefix:         envStr(prefix+"_PREFIX", def.Prefix),
        Debug:          envBool(prefix+"_DEBUG", false),
    }
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
