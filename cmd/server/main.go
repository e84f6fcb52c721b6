// Package main provides the entry point for the local drag-and-drop OCR UI
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Caia-Tech/caia-ocr/internal/api"
	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/internal/pipeline"
	"github.com/Caia-Tech/caia-ocr/internal/presentation"
	"github.com/Caia-Tech/caia-ocr/internal/session"
	"github.com/Caia-Tech/caia-ocr/pkg/config"
	"github.com/Caia-Tech/caia-ocr/pkg/extractor"
	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCloser, err := logging.SetupLogger(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	if !extractor.Available() {
		log.Warn().Msg("Built without the ocr tag; every image will fail recognition")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Lifecycle events feed the metrics endpoint
	bus := pipeline.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()

	metrics := pipeline.NewMetricsCollector()
	if _, err := metrics.Attach(bus); err != nil {
		log.Fatal().Err(err).Msg("Failed to attach metrics collector")
	}

	p := pipeline.New(extractor.NewTesseractEngine,
		pipeline.WithLanguage(cfg.Recognition.Language),
		pipeline.WithTimeout(cfg.Recognition.Timeout),
		pipeline.WithPublisher(bus),
	)

	s := session.New(gate.New(cfg.Recognition.MaxFileSize), p,
		session.WithPublisher(bus),
		session.WithContext(ctx),
	)
	defer s.Close()

	renderer := presentation.NewRenderer(&presentation.RendererConfig{
		AcceptList: cfg.Server.AcceptList,
	})

	app := fiber.New(fiber.Config{
		AppName:               "Caia OCR",
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.MaxRequestSize,
		ErrorHandler:          api.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${error}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "UTC",
		Output:     os.Stderr,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	api.SetupRoutes(app,
		api.NewHandlers(s, renderer, presentation.SystemClipboard{}),
		api.NewMetricsHandler(metrics, bus),
	)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	addr := cfg.Server.Address()
	log.Info().
		Str("address", addr).
		Str("language", cfg.Recognition.Language).
		Bool("ocr_available", extractor.Available()).
		Msg("Starting Caia OCR")
	if err := app.Listen(addr); err != nil {
		log.Error().Err(err).Msg("Server stopped")
	}
}
