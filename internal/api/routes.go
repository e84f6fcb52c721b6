package api

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all routes of the local UI
func SetupRoutes(app *fiber.App, h *Handlers, metrics *MetricsHandler) {
	app.Get("/", h.Index)
	app.Get("/health", h.Health)

	// Form targets used by the page
	app.Post("/upload", h.UploadForm)
	app.Post("/reset", h.ResetForm)
	app.Post("/copy", h.CopyForm)

	v1 := app.Group("/api/v1")
	v1.Get("/state", h.State)

	extractions := v1.Group("/extractions")
	extractions.Post("/", h.Upload)
	extractions.Get("/current", h.CurrentResult)
	extractions.Delete("/current", h.ResetResult)
	extractions.Post("/current/copy", h.CopyResult)

	if metrics != nil {
		v1.Get("/metrics", metrics.GetMetrics)
		v1.Delete("/metrics", metrics.ClearMetrics)
	}
}

// ErrorHandler renders fiber errors as JSON
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
