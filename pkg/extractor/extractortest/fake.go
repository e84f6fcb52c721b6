// Package extractortest provides scripted OCR engines for tests.
package extractortest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Caia-Tech/caia-ocr/pkg/extractor"
)

// Script describes what a FakeEngine does when asked to recognize
type Script struct {
	Text       string
	Confidence float64
	// Steps are fractions reported under the recognizing status
	Steps []float64
	// Startup statuses reported by the factory before the engine is returned
	Startup []extractor.Progress
	// InitErr fails the factory; RecognizeErr fails Recognize
	InitErr      error
	RecognizeErr error
	// Gate, when non-nil, blocks Recognize until it is closed or ctx ends
	Gate chan struct{}
}

// Factory hands out FakeEngines and counts their lifecycle
type Factory struct {
	mu      sync.Mutex
	scripts []Script
	next    int

	Created   atomic.Int32
	Closed    atomic.Int32
	Languages []string
}

// NewFactory returns a Factory that plays scripts in order, repeating the
// last one once they run out.
func NewFactory(scripts ...Script) *Factory {
	if len(scripts) == 0 {
		scripts = []Script{{}}
	}
	return &Factory{scripts: scripts}
}

// New satisfies extractor.Factory
func (f *Factory) New(ctx context.Context, language string, progress extractor.ProgressFunc) (extractor.Engine, error) {
	f.mu.Lock()
	script := f.scripts[f.next]
	if f.next < len(f.scripts)-1 {
		f.next++
	}
	f.Languages = append(f.Languages, language)
	f.mu.Unlock()

	for _, p := range script.Startup {
		if progress != nil {
			progress(p)
		}
	}
	if script.InitErr != nil {
		return nil, script.InitErr
	}
	f.Created.Add(1)
	return &FakeEngine{script: script, factory: f}, nil
}

// FakeEngine is an extractor.Engine driven by a Script
type FakeEngine struct {
	script  Script
	factory *Factory
	closed  atomic.Bool
}

// Recognize plays the script
func (e *FakeEngine) Recognize(ctx context.Context, image []byte, progress extractor.ProgressFunc) (extractor.Recognition, error) {
	if len(image) == 0 {
		return extractor.Recognition{}, extractor.ErrEmptyImage
	}
	for _, step := range e.script.Steps {
		if progress != nil {
			progress(extractor.Progress{Status: extractor.StatusRecognizing, Fraction: step})
		}
	}
	if e.script.Gate != nil {
		select {
		case <-e.script.Gate:
		case <-ctx.Done():
			return extractor.Recognition{}, ctx.Err()
		}
	}
	if e.script.RecognizeErr != nil {
		return extractor.Recognition{}, e.script.RecognizeErr
	}
	return extractor.Recognition{Text: e.script.Text, Confidence: e.script.Confidence}, nil
}

// Close records the release; a second call panics so double releases show up in tests
func (e *FakeEngine) Close() error {
	if e.closed.Swap(true) {
		panic("extractortest: engine closed twice")
	}
	e.factory.Closed.Add(1)
	return nil
}
