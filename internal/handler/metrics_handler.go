package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorcrm-api/internal/service"
)

// ReadinessProbe reports whether a dependency can serve traffic.
type ReadinessProbe func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	probes  map[string]ReadinessProbe
}

// NewMetricsHandler constructs a metrics handler. Probes are consulted by Ready.
func NewMetricsHandler(metrics *service.MetricsService, probes map[string]ReadinessProbe) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, probes: probes}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness checks.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every probe with a short deadline and reports 503 if any fails.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(gin.H, len(h.probes))
	status := http.StatusOK
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
