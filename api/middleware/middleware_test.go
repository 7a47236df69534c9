package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestAPIKeyDisabledWhenEmpty(t *testing.T) {
	r := newTestRouter(APIKey(""))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyRejectsWrongKey(t *testing.T) {
	r := newTestRouter(APIKey("secret"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(apiKeyHeader, "wrong")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(apiKeyHeader, "secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.POST("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiterBurstThenRefill(t *testing.T) {
	l := NewRateLimiter(10, 2)
	now := time.Now()

	assert.True(t, l.getLimiter("a").AllowN(now, 1))
	assert.True(t, l.getLimiter("a").AllowN(now, 1))
	assert.False(t, l.getLimiter("a").AllowN(now, 1))

	// Another client has its own bucket.
	assert.True(t, l.getLimiter("b").AllowN(now, 1))

	// 100ms at 10 req/s refills one token.
	assert.True(t, l.getLimiter("a").AllowN(now.Add(100*time.Millisecond), 1))
}

func TestRateLimiterMiddlewareRejectsWhenExhausted(t *testing.T) {
	l := NewRateLimiter(0, 1)
	r := newTestRouter(l.Middleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
