package config

import "time"

// RateLimitConfig configures one token bucket.  Capacity tokens are
// available up front and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the global API limiter settings.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        def.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    return def.normalized()
}

// LoadAuthRateLimitConfig reads the stricter limiter used on the auth
// routes: 20 requests per client IP every 15 minutes by default.
func LoadAuthRateLimitConfig() RateLimitConfig {
    window := envDur("AUTH_RATE_LIMIT_WINDOW", 15*time.Minute)
    limit := envInt("AUTH_RATE_LIMIT_MAX", 20)
    cfg := RateLimitConfig{
        Enabled:        envBool("AUTH_RATE_LIMIT_ENABLED", true),
        Capacity:       limit,
        RefillTokens:   limit,
        RefillInterval: window,
        TTL:            2 * window,
        KeyStrategy:    "ip",
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl") + ":auth",
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    return cfg.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval / time.Duration(c.RefillTokens); c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
