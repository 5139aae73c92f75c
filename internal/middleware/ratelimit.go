package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/rhum-atelier/internal/config"
)

// tokenBucket refills KEYS[1] by whole intervals and takes one token.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key      = KEYS[1]
local now      = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill   = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl      = tonumber(ARGV[5])

local st = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(st[1])
local ts = tonumber(st[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end

local steps = math.floor(math.max(0, now - ts) / interval)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  ts = ts + steps * interval
end

local allowed, retry = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, interval - (now - ts))
end

redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry}
`)

// NewTokenBucket limits requests per key with a Redis token bucket.  When
// the limiter is disabled, Redis is absent or the script fails, requests
// pass through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    limit := strconv.Itoa(cfg.Capacity)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second)).Int64Slice()
            if err != nil || len(res) != 3 {
                if cfg.Debug {
                    c.Logger().Warnf("ratelimit: key=%s: %v", key, err)
                }
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
            if res[0] == 1 {
                return next(c)
            }
            secs := int(math.Ceil(float64(res[2]) / 1000))
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                c.Logger().Infof("ratelimit: blocked key=%s retry=%dms", key, res[2])
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too many requests",
                "retry_after": secs,
            })
        }
    }
}

func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    route := c.Request().Method + " " + c.Path()
    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, ip)
    case "user":
        parts = append(parts, subject(c))
    case "ip_route":
        parts = append(parts, ip, route)
    default:
        parts = append(parts, ip, subject(c), route)
    }
    return strings.Join(parts, ":")
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
