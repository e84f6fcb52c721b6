package extractor

import (
	"context"
	"errors"
)

// Progress statuses reported by an engine. Only StatusRecognizing carries
// recognition progress; the others describe engine start-up.
const (
	StatusLoadingCore     = "loading tesseract core"
	StatusInitializingAPI = "initializing api"
	StatusLoadingLanguage = "loading language traineddata"
	StatusRecognizing     = "recognizing text"
)

// DefaultLanguage is the only language the application recognizes
const DefaultLanguage = "eng"

// ErrOCRUnavailable is returned when the binary was built without OCR support
var ErrOCRUnavailable = errors.New("OCR support not enabled; rebuild with -tags ocr (requires Tesseract)")

// ErrEmptyImage is returned when no image bytes were supplied
var ErrEmptyImage = errors.New("no image content provided for OCR")

// Progress is a single notification from an engine
type Progress struct {
	Status   string  `json:"status"`
	Fraction float64 `json:"progress"` // 0..1 within the current status
}

// ProgressFunc receives engine notifications. It may be nil.
type ProgressFunc func(Progress)

// Recognition is the raw output of one recognition
type Recognition struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // fractional, 0..1
}

// Engine is an initialized OCR engine instance. Close must be called exactly
// once when the caller is done with it.
type Engine interface {
	Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Recognition, error)
	Close() error
}

// Factory initializes a new Engine for the given language
type Factory func(ctx context.Context, language string, progress ProgressFunc) (Engine, error)

func report(progress ProgressFunc, status string, fraction float64) {
	if progress != nil {
		progress(Progress{Status: status, Fraction: fraction})
	}
}
