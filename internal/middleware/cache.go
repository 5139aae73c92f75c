package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/rhum-atelier/internal/config"
)

// cachedResponse is what the catalog cache stores per key.
type cachedResponse struct {
    Status      int    `json:"s"`
    ContentType string `json:"t"`
    Body        []byte `json:"b"`
}

// bodyRecorder tees the response body while forwarding it.
type bodyRecorder struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if !r.overflow {
        if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
            r.overflow = true
            r.buf.Reset()
        } else {
            r.buf.Write(b)
        }
    }
    return r.ResponseWriter.Write(b)
}

func cacheKey(prefix string, c echo.Context) string {
    sum := sha1.Sum([]byte(c.Request().URL.Path + "?" + c.Request().URL.RawQuery))
    return fmt.Sprintf("%s:%x", prefix, sum)
}

// NewRedisCache serves successful catalog responses from Redis.  Only the
// configured methods are cached and bodies above MaxBodyBytes are skipped.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKey(cfg.Prefix, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.overflow {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                Status:      rec.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        rec.buf.Bytes(),
            })
            if err == nil {
                _ = rdb.Set(context.WithoutCancel(ctx), key, payload, ttl).Err()
            }
            return nil
        }
    }
}

// InvalidateCache drops every cached response under prefix.  Admin edits
// to workshops and stock call it so the catalog is never served stale.
func InvalidateCache(ctx context.Context, rdb *redis.Client, prefix string) {
    if rdb == nil {
        return
    }
    iter := rdb.Scan(ctx, 0, prefix+":*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        log.Printf("cache: scan %s: %v", prefix, err)
        return
    }
    if len(keys) > 0 {
        if err := rdb.Del(ctx, keys...).Err(); err != nil {
            log.Printf("cache: invalidate %s: %v", prefix, err)
        }
    }
}
