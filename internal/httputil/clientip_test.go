package httputil

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	t.Run("x-forwarded-for first hop", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", GetClientIP(req))
	})

	t.Run("x-real-ip fallback", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.8")
		assert.Equal(t, "203.0.113.8", GetClientIP(req))
	})

	t.Run("remote addr fallback", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.9:54321"
		assert.Equal(t, "203.0.113.9", GetClientIP(req))
	})

	t.Run("remote addr without port", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "203.0.113.10"
		assert.Equal(t, "203.0.113.10", GetClientIP(req))
	})
}
