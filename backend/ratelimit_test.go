package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiter(t *testing.T) {
	lim := newIPLimiter(3)
	h := lim.middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h(w, req)
		return w.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, call("10.0.0.1:5555"))
	}
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:6666"))

	// other clients keep their own bucket
	assert.Equal(t, http.StatusOK, call("10.0.0.2:5555"))
}

func TestIPLimiterEvictsIdleClients(t *testing.T) {
	lim := newIPLimiter(3)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lim.now = func() time.Time { return now }
	lim.lastSweep = now

	lim.get("10.0.0.1")
	lim.get("10.0.0.2")
	assert.Equal(t, 2, lim.size())

	now = now.Add(3 * time.Minute)
	lim.get("10.0.0.1")

	now = now.Add(3 * time.Minute)
	lim.get("10.0.0.3")
	assert.Equal(t, 2, lim.size(), "10.0.0.2 was idle past the window")
	_, kept := lim.visitors["10.0.0.1"]
	assert.True(t, kept)
}

func TestRegisterAndLoginHaveSeparateBudgets(t *testing.T) {
	c := cfg
	c.LoginRatePerMin = 2
	router := newRouter(db, c)

	post := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.9.9.9:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusBadRequest, post("/register"), "empty body is refused after the limiter")
	}
	assert.Equal(t, http.StatusTooManyRequests, post("/register"))
	assert.Equal(t, http.StatusBadRequest, post("/login"), "login keeps its own bucket")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9:4000"
	assert.Equal(t, "192.168.1.9", clientIP(req))

	req.RemoteAddr = "192.168.1.9"
	assert.Equal(t, "192.168.1.9", clientIP(req))
}
