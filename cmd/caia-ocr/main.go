package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/internal/pipeline"
	"github.com/Caia-Tech/caia-ocr/internal/presentation"
	"github.com/Caia-Tech/caia-ocr/internal/session"
	"github.com/Caia-Tech/caia-ocr/pkg/config"
	"github.com/Caia-Tech/caia-ocr/pkg/extractor"
	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "extract":
		if len(os.Args) < 3 {
			fmt.Println("❌ Usage: caia-ocr extract <image> [--copy] [--json]")
			os.Exit(1)
		}
		copyOut, jsonOut := false, false
		for _, flag := range os.Args[3:] {
			switch flag {
			case "--copy":
				copyOut = true
			case "--json":
				jsonOut = true
			default:
				fmt.Printf("❌ Unknown flag: %s\n", flag)
				os.Exit(1)
			}
		}
		os.Exit(extract(os.Args[2], copyOut, jsonOut))

	case "version":
		fmt.Printf("caia-ocr %s (ocr available: %t)\n", version, extractor.Available())

	default:
		showHelp()
	}
}

func extract(path string, copyOut, jsonOut bool) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Invalid configuration: %v\n", err)
		return 1
	}
	// Keep the terminal for results; logs only go to a file if one is configured
	cfg.Logging.Console = false
	logCloser, err := logging.SetupLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("❌ Failed to set up logging: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", path, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(extractor.NewTesseractEngine,
		pipeline.WithLanguage(cfg.Recognition.Language),
		pipeline.WithTimeout(cfg.Recognition.Timeout),
	)
	s := session.New(gate.New(cfg.Recognition.MaxFileSize), p,
		session.WithContext(ctx),
		session.WithNoticeFunc(func(n session.Notice) {
			if n.IsError() {
				fmt.Fprintf(os.Stderr, "\n❌ %s\n", n.Message)
			}
		}),
	)
	defer s.Close()

	file := gate.File{Name: filepath.Base(path), Size: int64(len(data)), Data: data}
	ticket, err := s.Drop([]gate.File{file})
	if err != nil {
		if !errors.Is(err, gate.ErrUnsupportedDocument) && !errors.Is(err, gate.ErrFileTooLarge) {
			fmt.Printf("❌ %s is not a supported image (%v)\n", file.Name, err)
			fmt.Println("   " + presentation.HintAccepted)
		}
		return 1
	}

	fmt.Fprintf(os.Stderr, "🔄 Extracting text from %s\n", file.Name)
	waitWithProgress(ctx, s, ticket)

	st := s.Snapshot()
	if st.Result == nil {
		return 1
	}

	format := presentation.FormatPlain
	if jsonOut {
		format = presentation.FormatJSON
	}
	renderer := presentation.NewRenderer(nil)
	if err := renderer.Render(os.Stdout, format, renderer.View(st)); err != nil {
		fmt.Printf("❌ %v\n", err)
		return 1
	}

	if copyOut {
		if _, err := s.Copy(presentation.SystemClipboard{}); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to copy to clipboard: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "✅ Copied to clipboard")
	}

	log.Debug().Uint64("request_id", ticket.ID).Msg("CLI extraction finished")
	return 0
}

// waitWithProgress redraws a progress bar until the ticket completes
func waitWithProgress(ctx context.Context, s *session.Session, ticket *session.Ticket) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticket.Done():
			fmt.Fprintf(os.Stderr, "\r%s\n", presentation.RenderProgressBar(s.Snapshot().Progress, 30))
			return
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\n⚠️  Interrupted")
			<-ticket.Done()
			return
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "\r%s", presentation.RenderProgressBar(s.Snapshot().Progress, 30))
		}
	}
}

func showHelp() {
	fmt.Println(`🔎 Caia OCR CLI

Usage:
  caia-ocr extract <image> [--copy] [--json]   Extract text from an image
  caia-ocr version                              Show version information
  caia-ocr help                                 Show this help

Accepted images: PNG, JPG, JPEG, GIF, BMP. PDF files are recognized but not processed yet.

Environment:
  CAIA_OCR_LANGUAGE       Tesseract language (default eng)
  CAIA_OCR_MAX_FILE_SIZE  Largest accepted file in bytes
  CAIA_OCR_TIMEOUT        Recognition timeout, e.g. 2m (default none)
  CAIA_OCR_LOG_FILE       Write logs to this file`)
}
