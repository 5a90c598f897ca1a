package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(l *Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(l.Middleware())
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/quota/check", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func doGet(router *gin.Engine, path, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMinuteLimitBlocksExcessRequests(t *testing.T) {
	router := newLimitedRouter(New(2, 100))

	for i := 0; i < 2; i++ {
		if rec := doGet(router, "/quota/check", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if rec := doGet(router, "/quota/check", "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestLimitsAreTrackedPerClient(t *testing.T) {
	router := newLimitedRouter(New(1, 100))

	if rec := doGet(router, "/quota/check", "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for first client, got %d", rec.Code)
	}
	if rec := doGet(router, "/quota/check", "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for second client, got %d", rec.Code)
	}
	if rec := doGet(router, "/quota/check", "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for first client, got %d", rec.Code)
	}
}

func TestHealthPathIsExempt(t *testing.T) {
	router := newLimitedRouter(New(1, 1))

	for i := 0; i < 5; i++ {
		if rec := doGet(router, "/health", "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("health request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimitHeadersAreSet(t *testing.T) {
	router := newLimitedRouter(New(10, 100))

	rec := doGet(router, "/quota/check", "10.0.0.1")
	if got := rec.Header().Get("X-RateLimit-Limit-Minute"); got != "10" {
		t.Fatalf("expected minute limit header 10, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining-Minute"); got != "9" {
		t.Fatalf("expected minute remaining header 9, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit-Hour"); got != "100" {
		t.Fatalf("expected hour limit header 100, got %q", got)
	}
}
