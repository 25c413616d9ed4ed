package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRedisRateLimiter_LimitsPerKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewRedisRateLimiter(rdb).Middleware(RateLimitConfig{
		Limit:  2,
		Window: 30 * time.Second,
		KeyFn:  KeyByAdmin,
	})(okHandler())

	send := func(admin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if admin != "" {
			req = req.WithContext(WithAdminForTest(req.Context(), admin, "sid"))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("ana").Code)
	assert.Equal(t, http.StatusOK, send("ana").Code)

	w := send("ana")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	// Other admins have their own budget.
	assert.Equal(t, http.StatusOK, send("bruno").Code)
	assert.True(t, mr.Exists("rl:admin:admin:ana"))
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	h := NewRedisRateLimiter(rdb).Middleware(RateLimitConfig{Limit: 1, Window: time.Minute})(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRedisRateLimiter_NilClientPassesThrough(t *testing.T) {
	h := NewRedisRateLimiter(nil).Middleware(RateLimitConfig{Limit: 0, Window: time.Minute})(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
