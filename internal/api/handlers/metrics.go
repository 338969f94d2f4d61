package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobqueue-service/internal/infrastructure/metrics"
)

// MetricsHandler exposes the Prometheus registry
type MetricsHandler struct {
	exposition http.Handler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(m *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{
		exposition: m.Handler(),
	}
}

// Metrics serves the Prometheus exposition format
func (mh *MetricsHandler) Metrics(c *gin.Context) {
	mh.exposition.ServeHTTP(c.Writer, c.Request)
}
