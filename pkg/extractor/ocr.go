//go:build ocr

package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognizes text through gosseract
type TesseractEngine struct {
	client               *gosseract.Client
	language             string
	pageSegmentationMode gosseract.PageSegMode
}

// NewTesseractEngine is a Factory backed by a fresh gosseract client
func NewTesseractEngine(ctx context.Context, language string, progress ProgressFunc) (Engine, error) {
	if language == "" {
		language = DefaultLanguage
	}

	report(progress, StatusLoadingCore, 0)
	client := gosseract.NewClient()
	report(progress, StatusLoadingCore, 1)

	if err := ctx.Err(); err != nil {
		client.Close()
		return nil, err
	}

	report(progress, StatusLoadingLanguage, 0)
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language '%s': %w", language, err)
	}
	report(progress, StatusLoadingLanguage, 1)

	report(progress, StatusInitializingAPI, 0)
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	report(progress, StatusInitializingAPI, 1)

	return &TesseractEngine{
		client:               client,
		language:             language,
		pageSegmentationMode: gosseract.PSM_AUTO,
	}, nil
}

// Recognize extracts text and a mean word confidence from image bytes
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (Recognition, error) {
	if len(image) == 0 {
		return Recognition{}, ErrEmptyImage
	}
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}

	if err := e.client.SetImageFromBytes(image); err != nil {
		return Recognition{}, fmt.Errorf("failed to set OCR image data: %w", err)
	}

	report(progress, StatusRecognizing, 0)
	text, err := e.client.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("OCR text extraction failed: %w", err)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	confidence := e.meanConfidence()
	report(progress, StatusRecognizing, 1)

	return Recognition{Text: text, Confidence: confidence}, nil
}

// meanConfidence averages word confidences, which tesseract reports as 0..100
func (e *TesseractEngine) meanConfidence() float64 {
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100.0
}

// Close releases the tesseract client
func (e *TesseractEngine) Close() error {
	return e.client.Close()
}

// Available reports whether this binary can run OCR
func Available() bool { return true }
