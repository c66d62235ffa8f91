package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "github.com/iliyamo/stagepass/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket limits requests per key (see buildRateKey) with a token
// bucket.  Buckets live in Redis so every replica shares them; when rdb is
// nil or Redis errors the request is judged by an in-process bucket with
// the same shape instead of being let through unchecked.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    local := newLocalBuckets(cfg)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            now := time.Now()

            var (
                d   decision
                err error
            )
            if rdb != nil {
                d, err = redisAllow(c, rdb, cfg, key, now)
                if err != nil && cfg.Debug {
                    logrus.WithError(err).WithField("key", key).Warn("ratelimit: redis failed, using local bucket")
                }
            }
            if rdb == nil || err != nil {
                d = local.allow(key, now)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }

            if !d.allowed {
                secs := int(math.Ceil(d.retryAfter.Seconds()))
                if secs < 1 {
                    secs = 1
                }
                h.Set("Retry-After", strconv.Itoa(secs))
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "error":       "too_many_requests",
                    "message":     "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

type decision struct {
    allowed    bool
    remaining  int64
    retryAfter time.Duration
}

func redisAllow(c echo.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (decision, error) {
    vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
        now.UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(vals) != 3 {
        return decision{}, fmt.Errorf("unexpected script result %v", vals)
    }
    return decision{
        allowed:    vals[0] == 1,
        remaining:  vals[1],
        retryAfter: time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// localBuckets is the in-process fallback built on x/time/rate.  Idle
// entries are swept lazily once per TTL.
type localBuckets struct {
    mu        sync.Mutex
    limit     rate.Limit
    burst     int
    ttl       time.Duration
    entries   map[string]*localEntry
    lastSweep time.Time
}

type localEntry struct {
    lim  *rate.Limiter
    seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
    return &localBuckets{
        limit:   rate.Every(cfg.RefillInterval / time.Duration(cfg.RefillTokens)),
        burst:   cfg.Capacity,
        ttl:     cfg.TTL,
        entries: make(map[string]*localEntry),
    }
}

func (b *localBuckets) allow(key string, now time.Time) decision {
    b.mu.Lock()
    defer b.mu.Unlock()

    if now.Sub(b.lastSweep) > b.ttl {
        for k, e := range b.entries {
            if now.Sub(e.seen) > b.ttl {
                delete(b.entries, k)
            }
        }
        b.lastSweep = now
    }

    e, ok := b.entries[key]
    if !ok {
        e = &localEntry{lim: rate.NewLimiter(b.limit, b.burst)}
        b.entries[key] = e
    }
    e.seen = now

    r := e.lim.ReserveN(now, 1)
    if delay := r.DelayFrom(now); delay > 0 {
        r.CancelAt(now)
        return decision{allowed: false, retryAfter: delay}
    }
    return decision{allowed: true, remaining: int64(math.Max(0, math.Floor(e.lim.TokensAt(now))))}
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := currentUserID(c)
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "ip_route":
        parts = append(parts, "ip", ip, "route", route)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
