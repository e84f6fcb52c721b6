//go:build !ocr

package extractor

import (
	"context"
)

// NewTesseractEngine reports ErrOCRUnavailable when Tesseract was not compiled in
func NewTesseractEngine(ctx context.Context, language string, progress ProgressFunc) (Engine, error) {
	return nil, ErrOCRUnavailable
}

// Available reports whether this binary can run OCR
func Available() bool { return false }
