package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type phaseRoute struct{}

func (phaseRoute) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/phase", func(c echo.Context) error { return c.String(http.StatusOK, c.RealIP()) })
}

func get(s *Server, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/phase", nil)
	req.RemoteAddr = "192.0.2.10:40000"
	req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	s := NewServer(phaseRoute{}, WithMetrics(false), WithRateLimit(0.001, 1))

	first := get(s, "203.0.113.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "192.0.2.10", first.Body.String())
	assert.Equal(t, http.StatusTooManyRequests, get(s, "203.0.113.2").Code)
}

func TestTrustedProxyForwardsClientIP(t *testing.T) {
	s := NewServer(phaseRoute{}, WithMetrics(false), WithRateLimit(0.001, 1),
		WithTrustedProxies("192.0.2.0/24", "not-a-cidr"))

	first := get(s, "203.0.113.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "203.0.113.1", first.Body.String())
	assert.Equal(t, http.StatusOK, get(s, "203.0.113.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(s, "203.0.113.1").Code)
}
