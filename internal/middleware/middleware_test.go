package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    logtest "github.com/sirupsen/logrus/hooks/test"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/stagepass/internal/config"
    "github.com/iliyamo/stagepass/internal/utils"
)

const secret = "middleware-secret"

func serve(e *echo.Echo, method, path string, header map[string]string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, path, nil)
    for k, v := range header {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func protected() *echo.Echo {
    e := echo.New()
    g := e.Group("", JWTAuth(secret))
    g.GET("/me", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get(ContextUserID), "role": c.Get(ContextRole)})
    })
    g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole("ADMIN"))
    return e
}

func bearer(t *testing.T, userID uint64, role string) map[string]string {
    t.Helper()
    at, err := utils.NewAccessToken(secret, userID, role, 5)
    require.NoError(t, err)
    return map[string]string{echo.HeaderAuthorization: "Bearer " + at.Token}
}

func TestJWTAuth(t *testing.T) {
    e := protected()

    rec := serve(e, http.MethodGet, "/me", nil)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/me", map[string]string{echo.HeaderAuthorization: "Bearer junk"})
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
    assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())

    rec = serve(e, http.MethodGet, "/me", bearer(t, 9, "CUSTOMER"))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"user_id":9,"role":"CUSTOMER"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
    e := protected()

    rec := serve(e, http.MethodGet, "/admin", bearer(t, 9, "CUSTOMER"))
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = serve(e, http.MethodGet, "/admin", bearer(t, 1, "ADMIN"))
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTokenBucketLocalFallback(t *testing.T) {
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl:test",
    }
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil))

    hdr := map[string]string{echo.HeaderXRealIP: "10.0.0.1"}
    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", hdr).Code)
    rec := serve(e, http.MethodGet, "/x", hdr)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
    assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

    rec = serve(e, http.MethodGet, "/x", hdr)
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))
    assert.Contains(t, rec.Body.String(), "too_many_requests")

    // other clients have their own bucket
    other := map[string]string{echo.HeaderXRealIP: "10.0.0.2"}
    assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", other).Code)
}

func TestTokenBucketDisabled(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        NewTokenBucket(config.RateLimitConfig{Enabled: false, Capacity: 1}, nil))
    for i := 0; i < 5; i++ {
        assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", nil).Code)
    }
}

func TestLocalBucketsRefill(t *testing.T) {
    b := newLocalBuckets(config.RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute})
    now := time.Now()

    assert.True(t, b.allow("k", now).allowed)
    d := b.allow("k", now)
    assert.False(t, d.allowed)
    assert.InDelta(t, time.Second.Seconds(), d.retryAfter.Seconds(), 0.01)
    assert.True(t, b.allow("k", now.Add(1100*time.Millisecond)).allowed)

    // idle keys are swept after the TTL
    b.allow("other", now.Add(2*time.Minute))
    assert.NotContains(t, b.entries, "k")
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
    req.Header.Set(echo.HeaderXRealIP, "1.2.3.4")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/auth/login")
    c.Set(ContextUserID, uint64(5))

    assert.Equal(t, "rl:ip:1.2.3.4", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
    assert.Equal(t, "rl:user:5", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
    assert.Equal(t, "rl:ip:1.2.3.4:user:5:route:POST /api/auth/login",
        buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
    require.NoError(t, err)

    status, gotHdr, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
    assert.Equal(t, `{"ok":true}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 1})
    assert.False(t, ok)
    _, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
    assert.False(t, ok)
}

func TestCaptureWriterOverflow(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
    _, _ = cw.Write([]byte("abc"))
    assert.False(t, cw.overflow)
    _, _ = cw.Write([]byte("def"))
    assert.True(t, cw.overflow)
    assert.Equal(t, "abcdef", rec.Body.String())
}

func TestCacheKeyDistinguishesPaths(t *testing.T) {
    e := echo.New()
    cfg := config.CacheConfig{Prefix: "cache"}
    c1 := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/movies/1", nil), httptest.NewRecorder())
    c2 := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/movies/2", nil), httptest.NewRecorder())
    c3 := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/movies/1?x=1", nil), httptest.NewRecorder())
    assert.NotEqual(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c2))
    assert.NotEqual(t, cacheKeyFrom(cfg, c1), cacheKeyFrom(cfg, c3))
    assert.Regexp(t, `^cache:[0-9a-f]{40}$`, cacheKeyFrom(cfg, c1))
}

func TestRequestLogger(t *testing.T) {
    logger, hook := logtest.NewNullLogger()
    e := echo.New()
    e.Use(echomw.RequestID(), RequestLogger(logger))
    e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
    e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

    serve(e, http.MethodGet, "/ok", nil)
    require.NotNil(t, hook.LastEntry())
    assert.Equal(t, "request", hook.LastEntry().Message)
    assert.Equal(t, 200, hook.LastEntry().Data["status"])
    assert.NotEmpty(t, hook.LastEntry().Data["request_id"])

    serve(e, http.MethodGet, "/boom", nil)
    assert.Equal(t, 500, hook.LastEntry().Data["status"])
    assert.Equal(t, "error", hook.LastEntry().Level.String())
}
