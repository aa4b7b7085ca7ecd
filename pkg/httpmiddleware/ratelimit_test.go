package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(h http.Handler, remoteAddr string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestLimiter_UnderLimit(t *testing.T) {
	h := NewLimiter(RateLimitConfig{Max: 5, Window: time.Minute}).Middleware()(okHandler())

	for i := range 5 {
		w := request(h, "192.168.1.1:12345", nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestLimiter_OverLimit(t *testing.T) {
	h := NewLimiter(RateLimitConfig{Max: 2, Window: time.Minute}).Middleware()(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, request(h, "10.0.0.1:9999", nil).Code)
	}

	w := request(h, "10.0.0.1:9999", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate_limited", body["error"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestLimiter_Keys(t *testing.T) {
	tests := []struct {
		name   string
		cfg    RateLimitConfig
		first  func(http.Handler) int
		second func(http.Handler) int
		want   int
	}{
		{
			name: "different ips are independent",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func(h http.Handler) int {
				return request(h, "10.0.0.1:1234", nil).Code
			},
			second: func(h http.Handler) int {
				return request(h, "10.0.0.2:1234", nil).Code
			},
			want: http.StatusOK,
		},
		{
			name: "same ip different port is limited",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func(h http.Handler) int {
				return request(h, "10.0.0.1:1234", nil).Code
			},
			second: func(h http.Handler) int {
				return request(h, "10.0.0.1:5678", nil).Code
			},
			want: http.StatusTooManyRequests,
		},
		{
			name: "x-forwarded-for first hop wins",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func(h http.Handler) int {
				return request(h, "192.168.1.1:4444", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}).Code
			},
			second: func(h http.Handler) int {
				return request(h, "192.168.1.2:5555", map[string]string{"X-Forwarded-For": "203.0.113.50"}).Code
			},
			want: http.StatusTooManyRequests,
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: func(r *http.Request) string {
				return r.Header.Get("api_key")
			}},
			first: func(h http.Handler) int {
				return request(h, "10.0.0.1:1", map[string]string{"api_key": "key-a"}).Code
			},
			second: func(h http.Handler) int {
				return request(h, "10.0.0.1:1", map[string]string{"api_key": "key-b"}).Code
			},
			want: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLimiter(tt.cfg).Middleware()(okHandler())
			require.Equal(t, http.StatusOK, tt.first(h))
			assert.Equal(t, tt.want, tt.second(h))
		})
	}
}

func TestLimiter_Skip(t *testing.T) {
	l := NewLimiter(RateLimitConfig{Max: 1, Window: time.Minute, Skip: func(r *http.Request) bool {
		return r.URL.Path == "/livez"
	}})
	h := l.Middleware()(okHandler())

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/livez", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Zero(t, l.Len())
}

func TestLimiter_SlidingWindow(t *testing.T) {
	l := NewLimiter(RateLimitConfig{Max: 4, Window: time.Minute})
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	for range 4 {
		require.True(t, l.Allow("k", start).Allowed)
	}
	require.False(t, l.Allow("k", start.Add(30*time.Second)).Allowed)

	// Halfway into the next window the previous one still weighs 2 of 4.
	mid := start.Add(90 * time.Second)
	assert.True(t, l.Allow("k", mid).Allowed)
	assert.True(t, l.Allow("k", mid).Allowed)
	assert.False(t, l.Allow("k", mid).Allowed)

	// Two windows later the history is gone.
	assert.True(t, l.Allow("k", start.Add(3*time.Minute)).Allowed)

	l.evict(start.Add(10 * time.Minute))
	assert.Zero(t, l.Len())
}
