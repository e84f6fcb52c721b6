// Package pipeline drives one OCR engine through its lifecycle for a single
// file and reports what happened on an event bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/pkg/document"
	"github.com/Caia-Tech/caia-ocr/pkg/extractor"
	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/rs/zerolog"
)

// FailureMessage is the single user-facing text for any recognition failure
const FailureMessage = "Failed to extract text from the file. Please try again."

// RecognitionError wraps every failure of a run. Callers are not expected to
// tell engine, input and resource failures apart.
type RecognitionError struct {
	RequestID uint64
	FileName  string
	Err       error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition of %q failed: %v", e.FileName, e.Err)
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// Request is one file submitted for recognition
type Request struct {
	ID   uint64
	File gate.File
}

// ProgressFunc receives recognition progress as an integer percentage
type ProgressFunc func(percent int)

// Pipeline runs recognitions. It is safe for concurrent use; every run
// acquires its own engine.
type Pipeline struct {
	factory  extractor.Factory
	language string
	timeout  time.Duration
	events   Publisher
	now      func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLanguage sets the engine language
func WithLanguage(language string) Option {
	return func(p *Pipeline) { p.language = language }
}

// WithTimeout bounds each run; zero means no timeout
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) { p.timeout = timeout }
}

// WithPublisher sends lifecycle events to pub
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.events = pub }
}

// WithClock overrides the clock used for result timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline around an engine factory
func New(factory extractor.Factory, opts ...Option) *Pipeline {
	p := &Pipeline{
		factory:  factory,
		language: extractor.DefaultLanguage,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run recognizes req.File. onProgress may be nil. The engine is released on
// every exit path, including cancellation and panics inside the engine.
func (p *Pipeline) Run(ctx context.Context, req Request, onProgress ProgressFunc) (*document.ExtractionResult, error) {
	logger := logging.GetPipelineLogger(req.ID, req.File.Name)
	start := time.Now()

	p.publish(req, EventRecognitionStarted, func(e *Event) {})
	logger.Info().Str("file_type", req.File.Type).Int64("size", req.File.Size).Msg("Recognition started")

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	result, err := p.run(ctx, req, onProgress, logger)
	duration := time.Since(start)
	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("Recognition failed")
		p.publish(req, EventRecognitionFailed, func(e *Event) {
			e.Duration = duration
			e.Error = err.Error()
		})
		return nil, &RecognitionError{RequestID: req.ID, FileName: req.File.Name, Err: err}
	}

	logger.Info().
		Int("confidence", result.Confidence).
		Int("word_count", result.WordCount).
		Dur("duration", duration).
		Msg("Recognition completed")
	p.publish(req, EventRecognitionCompleted, func(e *Event) {
		e.Duration = duration
		e.Result = result
	})
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, onProgress ProgressFunc, logger zerolog.Logger) (result *document.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	info, err := gate.Probe(req.File.Data)
	switch {
	case errors.Is(err, gate.ErrUndecodedImage):
		logger.Debug().Err(err).Str("format", info.Format).Msg("Image variant left to the engine")
	case err != nil:
		return nil, err
	default:
		logger.Debug().
			Str("format", info.Format).
			Int("width", info.Width).
			Int("height", info.Height).
			Msg("Image probed")
	}

	forward := func(pr extractor.Progress) {
		if pr.Status != extractor.StatusRecognizing {
			logger.Debug().Str("status", pr.Status).Float64("progress", pr.Fraction).Msg("Engine status")
			return
		}
		percent := document.RoundPercent(pr.Fraction)
		if onProgress != nil {
			onProgress(percent)
		}
		p.publish(req, EventRecognitionProgress, func(e *Event) { e.Progress = percent })
	}

	engine, err := p.factory(ctx, p.language, forward)
	if err != nil {
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Engine release failed")
		}
		logger.Debug().Msg("Engine released")
	}()

	rec, err := engine.Recognize(ctx, req.File.Data, forward)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return document.NewExtractionResult(rec.Text, rec.Confidence, req.File.Name, req.File.Type, p.now()), nil
}

func (p *Pipeline) publish(req Request, eventType EventType, fill func(e *Event)) {
	if p.events == nil {
		return
	}
	event := NewEvent(eventType, req.ID, req.File.Name)
	event.FileType = req.File.Type
	fill(event)
	// Observers are best effort; a full buffer never fails a recognition
	_ = p.events.Publish(event)
}
