package api

import (
	"github.com/Caia-Tech/caia-ocr/internal/pipeline"
	"github.com/gofiber/fiber/v2"
)

// MetricsHandler exposes recognition outcomes collected from the event bus
type MetricsHandler struct {
	metrics *pipeline.MetricsCollector
	bus     *pipeline.EventBus
}

// NewMetricsHandler creates a new metrics handler; bus may be nil
func NewMetricsHandler(metrics *pipeline.MetricsCollector, bus *pipeline.EventBus) *MetricsHandler {
	return &MetricsHandler{
		metrics: metrics,
		bus:     bus,
	}
}

// GetMetrics returns aggregate recognition statistics
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	summary := h.metrics.Summary()
	resp := fiber.Map{
		"metrics_summary": summary,
		"success_rate":    summary.GetSuccessRate(),
		"avg_duration_ms": summary.GetAvgDurationMs(),
	}
	if h.bus != nil {
		resp["event_bus"] = h.bus.GetStats()
	}
	return c.JSON(resp)
}

// ClearMetrics clears all collected metrics
func (h *MetricsHandler) ClearMetrics(c *fiber.Ctx) error {
	h.metrics.ClearMetrics()
	return c.JSON(fiber.Map{
		"message": "Metrics cleared successfully",
	})
}
