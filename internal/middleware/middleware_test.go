package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/rhum-atelier/internal/config"
    "github.com/iliyamo/rhum-atelier/internal/utils"
)

const testSecret = "test-secret"

func newTestServer() *echo.Echo {
    e := echo.New()
    g := e.Group("/v1", JWTAuth(testSecret))
    g.GET("/me", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{
            "user_id":     c.Get(CtxUserID),
            "member_code": c.Get(CtxMemberCode),
            "subject":     subject(c),
        })
    })
    g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ADMIN"))
    return e
}

func bearer(t *testing.T, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, utils.AccessClaims{UserID: 42, Role: role, MemberCode: "RR-24-ABCD"}, 5)
    if err != nil {
        t.Fatal(err)
    }
    return "Bearer " + tok.Token
}

func TestJWTAuthAndRole(t *testing.T) {
    e := newTestServer()
    tests := []struct {
        name   string
        path   string
        auth   string
        status int
    }{
        {"missing header", "/v1/me", "", http.StatusUnauthorized},
        {"garbage token", "/v1/me", "Bearer nope", http.StatusUnauthorized},
        {"valid token", "/v1/me", bearer(t, "USER"), http.StatusOK},
        {"role denied", "/v1/admin", bearer(t, "PRO"), http.StatusForbidden},
        {"role allowed", "/v1/admin", bearer(t, "ADMIN"), http.StatusNoContent},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodGet, tt.path, nil)
            if tt.auth != "" {
                req.Header.Set("Authorization", tt.auth)
            }
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, req)
            if rec.Code != tt.status {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
            }
        })
    }
}

func TestJWTAuthSetsSubject(t *testing.T) {
    e := newTestServer()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    req.Header.Set("Authorization", bearer(t, "USER"))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    want := `{"member_code":"RR-24-ABCD","subject":"42","user_id":42}` + "\n"
    if rec.Body.String() != want {
        t.Errorf("body = %q, want %q", rec.Body.String(), want)
    }
}

func TestRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/v1/public/participants/abc/certify", nil)
    req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/public/participants/:id/certify")

    tests := []struct {
        strategy string
        want     string
    }{
        {"ip", "rl:10.0.0.1"},
        {"user", "rl:anon"},
        {"ip_route", "rl:10.0.0.1:POST /v1/public/participants/:id/certify"},
        {"", "rl:10.0.0.1:anon:POST /v1/public/participants/:id/certify"},
    }
    for _, tt := range tests {
        got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: tt.strategy}, c)
        if got != tt.want {
            t.Errorf("strategy %q: got %q, want %q", tt.strategy, got, tt.want)
        }
    }
    c.Set(CtxUserID, uint64(7))
    if got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c); got != "rl:7" {
        t.Errorf("user strategy with session: got %q", got)
    }
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
    e := echo.New()
    e.GET("/v1/workshops", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil),
        NewRedisCache(config.CacheConfig{Enabled: true}, nil))
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workshops", nil))
    if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
        t.Errorf("expected untouched response, got %d %v", rec.Code, rec.Header())
    }
}

func TestBodyRecorderLimit(t *testing.T) {
    rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
    _, _ = rec.Write([]byte("abc"))
    if rec.overflow || rec.buf.String() != "abc" {
        t.Fatalf("unexpected state %q overflow=%v", rec.buf.String(), rec.overflow)
    }
    _, _ = rec.Write([]byte("de"))
    if !rec.overflow || rec.buf.Len() != 0 {
        t.Error("body over the limit must not be cached")
    }
}
