package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type counterFunc func(scopeKey string, windowStart time.Time) (int, error)

func (f counterFunc) Hit(scopeKey string, windowStart time.Time) (int, error) {
	return f(scopeKey, windowStart)
}

func newRateLimitedRouter(counter RateCounter, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", RateLimit(counter, "login", limit, time.Minute, zap.NewNop()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRateLimitUnderLimit(t *testing.T) {
	counter := counterFunc(func(string, time.Time) (int, error) { return 3, nil })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	newRateLimitedRouter(counter, 5).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRateLimitOverLimit(t *testing.T) {
	counter := counterFunc(func(string, time.Time) (int, error) { return 6, nil })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	newRateLimitedRouter(counter, 5).ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected a Retry-After header")
	}
	if !strings.Contains(w.Body.String(), "rate_limited") {
		t.Fatalf("expected rate_limited error code, got %s", w.Body.String())
	}
}

func TestRateLimitScopesKeyByIP(t *testing.T) {
	var seenKey string
	var seenWindow time.Time
	counter := counterFunc(func(scopeKey string, windowStart time.Time) (int, error) {
		seenKey = scopeKey
		seenWindow = windowStart
		return 1, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	newRateLimitedRouter(counter, 5).ServeHTTP(w, req)

	if !strings.HasPrefix(seenKey, "login:ip:") {
		t.Fatalf("expected key scoped by login and IP, got %q", seenKey)
	}
	if !seenWindow.Equal(seenWindow.Truncate(time.Minute)) {
		t.Fatalf("expected window start on a minute boundary, got %s", seenWindow)
	}
}

func TestRateLimitFailsOpenOnCounterError(t *testing.T) {
	counter := counterFunc(func(string, time.Time) (int, error) {
		return 0, errors.New("storage down")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	newRateLimitedRouter(counter, 5).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("a counter failure must not block logins, got %d", w.Code)
	}
}
