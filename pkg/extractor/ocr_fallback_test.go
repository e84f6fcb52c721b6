//go:build !ocr

package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackEngineUnavailable(t *testing.T) {
	engine, err := NewTesseractEngine(context.Background(), DefaultLanguage, nil)
	assert.Nil(t, engine)
	assert.ErrorIs(t, err, ErrOCRUnavailable)
	assert.False(t, Available())
}
