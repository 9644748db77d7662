package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutorcrm-api/internal/handler"
	"github.com/noah-isme/tutorcrm-api/internal/service"
	"github.com/noah-isme/tutorcrm-api/pkg/config"
)

func routeSet(r *gin.Engine) map[string]bool {
	out := map[string]bool{}
	for _, route := range r.Routes() {
		out[route.Method+" "+route.Path] = true
	}
	return out
}

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{APIPrefix: "/api/v1"}
	deps := &app{
		availability: handler.NewAvailabilityHandler(nil, nil),
		settings:     handler.NewAvailabilitySettingsHandler(nil),
		booking:      handler.NewBookingHandler(nil),
		metrics:      handler.NewMetricsHandler(service.NewMetricsService(), nil),
	}
	r := gin.New()
	registerRoutes(r, cfg, deps)
	routes := routeSet(r)

	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/teachers/:id/availability/slots",
		"POST /api/v1/teachers/:id/availability/check",
		"GET /api/v1/teachers/:id/availability/export",
		"PUT /api/v1/teachers/:id/availability/template",
		"DELETE /api/v1/teachers/:id/availability/blocks/:blockId",
		"POST /api/v1/teachers/:id/sessions",
		"PUT /api/v1/teachers/:id/sessions/:sessionId",
	} {
		assert.True(t, routes[want], want)
	}
	assert.False(t, routes["GET /docs/*any"])

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterRoutesWithoutBookings(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{APIPrefix: "/api/v1", Docs: config.DocsConfig{Enabled: true}}
	deps := &app{
		availability: handler.NewAvailabilityHandler(nil, nil),
		settings:     handler.NewAvailabilitySettingsHandler(nil),
		metrics:      handler.NewMetricsHandler(nil, nil),
	}
	r := gin.New()
	registerRoutes(r, cfg, deps)
	routes := routeSet(r)

	assert.False(t, routes["POST /api/v1/teachers/:id/sessions"])
	assert.True(t, routes["GET /docs/*any"])
}
