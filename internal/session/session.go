// Package session holds the application's single live extraction and the
// state machine around it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/internal/pipeline"
	"github.com/Caia-Tech/caia-ocr/pkg/document"
	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrNoResult is returned by operations that need a current result
var ErrNoResult = errors.New("no extraction result available")

// Phase is the coarse application state
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseProcessing Phase = "processing"
	PhaseResult     Phase = "result"
)

// NoticeKind classifies user-facing notices
type NoticeKind string

const (
	NoticeUnsupported NoticeKind = "unsupported"
	NoticeFailure     NoticeKind = "failure"
	NoticeClipboard   NoticeKind = "clipboard"
	NoticeCopied      NoticeKind = "copied"
)

// Notice is a message shown to the user once. ID increases with every
// notice raised by a session.
type Notice struct {
	ID      uint64     `json:"id"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// IsError reports whether the notice describes a failure
func (n Notice) IsError() bool {
	return n.Kind != NoticeCopied
}

// State is a snapshot of the application
type State struct {
	Phase      Phase                      `json:"phase"`
	Processing bool                       `json:"isProcessing"`
	Progress   int                        `json:"progress"`
	Result     *document.ExtractionResult `json:"extractedData"`
	Notice     *Notice                    `json:"notice,omitempty"`
	RequestID  uint64                     `json:"requestId"`
}

// Runner performs one recognition
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, onProgress pipeline.ProgressFunc) (*document.ExtractionResult, error)
}

// Clipboard receives exported text
type Clipboard interface {
	WriteAll(text string) error
}

// NoticeFunc observes every notice as it is raised
type NoticeFunc func(Notice)

// Ticket identifies one started recognition
type Ticket struct {
	ID   uint64
	File gate.File
	done chan struct{}
}

// Done is closed when the recognition has finished, whether or not its
// outcome was applied
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the recognition finishes or ctx ends
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session owns the live state. Outcomes of a recognition are applied only
// while its request id is the latest one issued; anything older is dropped.
type Session struct {
	mu       sync.Mutex
	state    State
	latest   uint64
	notices  uint64
	inFlight map[uint64]context.CancelFunc

	gate     *gate.Gate
	runner   Runner
	events   pipeline.Publisher
	onNotice NoticeFunc
	base     context.Context
	now      func() time.Time
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

// Option configures a Session
type Option func(*Session)

// WithPublisher sends session events (unsupported documents, resets) to pub
func WithPublisher(pub pipeline.Publisher) Option {
	return func(s *Session) { s.events = pub }
}

// WithNoticeFunc registers a notice observer
func WithNoticeFunc(fn NoticeFunc) Option {
	return func(s *Session) { s.onNotice = fn }
}

// WithContext sets the parent context for background recognitions
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.base = ctx }
}

// WithClock overrides the clock used for notices
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates an idle session
func New(g *gate.Gate, runner Runner, opts ...Option) *Session {
	s := &Session{
		state:    State{Phase: PhaseIdle},
		inFlight: make(map[uint64]context.CancelFunc),
		gate:     g,
		runner:   runner,
		base:     context.Background(),
		now:      time.Now,
		logger:   logging.GetLogger("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	if st.Result != nil {
		r := *st.Result
		st.Result = &r
	}
	if st.Notice != nil {
		n := *st.Notice
		st.Notice = &n
	}
	return st
}

// Current returns the live result
func (s *Session) Current() (*document.ExtractionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Result == nil {
		return nil, ErrNoResult
	}
	r := *s.state.Result
	return &r, nil
}

// Drop handles a file drop. Only the first acceptable file is used. A PDF
// raises one unsupported notice and leaves the state alone. An image starts a
// background recognition and returns its ticket.
func (s *Session) Drop(files []gate.File) (*Ticket, error) {
	file, route, err := s.gate.Accept(files)
	switch {
	case route == gate.RouteDocument:
		s.raise(NoticeUnsupported, gate.ErrUnsupportedDocument.Error())
		s.publish(pipeline.EventDocumentUnsupported, 0, file)
		return nil, err
	case errors.Is(err, gate.ErrFileTooLarge):
		s.raise(NoticeFailure, pipeline.FailureMessage)
		return nil, err
	case err != nil:
		// Filtered by the accept list; never reaches the UI as a notice
		return nil, err
	}

	return s.start(file), nil
}

func (s *Session) start(file gate.File) *Ticket {
	ctx, cancel := context.WithCancel(s.base)

	s.mu.Lock()
	// A newer drop supersedes any run still in flight
	for id, c := range s.inFlight {
		c()
		delete(s.inFlight, id)
	}
	s.latest++
	id := s.latest
	s.inFlight[id] = cancel
	s.state = State{
		Phase:      PhaseProcessing,
		Processing: true,
		Progress:   0,
		Result:     nil,
		Notice:     nil,
		RequestID:  id,
	}
	s.mu.Unlock()

	ticket := &Ticket{ID: id, File: file, done: make(chan struct{})}
	s.logger.Info().Uint64("request_id", id).Str("file_name", file.Name).Msg("Extraction started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(ticket.done)
		defer cancel()

		result, err := s.runner.Run(ctx, pipeline.Request{ID: id, File: file}, func(pct int) {
			s.applyProgress(id, pct)
		})
		if err != nil {
			s.applyFailure(id, err)
			return
		}
		s.applyResult(id, result)
	}()

	return ticket
}

func (s *Session) applyProgress(id uint64, pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.latest || !s.state.Processing {
		return
	}
	s.state.Progress = pct
}

func (s *Session) applyResult(id uint64, result *document.ExtractionResult) {
	s.mu.Lock()
	delete(s.inFlight, id)
	if id != s.latest {
		s.mu.Unlock()
		s.logger.Debug().Uint64("request_id", id).Msg("Discarding stale extraction result")
		return
	}
	s.state.Phase = PhaseResult
	s.state.Processing = false
	s.state.Result = result
	s.mu.Unlock()

	s.logger.Info().Uint64("request_id", id).Int("word_count", result.WordCount).Msg("Extraction applied")
}

func (s *Session) applyFailure(id uint64, err error) {
	s.mu.Lock()
	delete(s.inFlight, id)
	if id != s.latest {
		s.mu.Unlock()
		s.logger.Debug().Uint64("request_id", id).Err(err).Msg("Discarding stale extraction failure")
		return
	}
	s.state.Phase = PhaseIdle
	s.state.Processing = false
	s.state.Progress = 0
	s.state.Result = nil
	n := s.setNoticeLocked(NoticeFailure, pipeline.FailureMessage)
	s.mu.Unlock()

	s.logger.Error().Uint64("request_id", id).Err(err).Msg("Extraction failed")
	s.emit(n)
}

// Reset discards the current result, zeroes progress and orphans any
// recognition still running
func (s *Session) Reset() {
	s.mu.Lock()
	for id, c := range s.inFlight {
		c()
		delete(s.inFlight, id)
	}
	s.latest++
	s.state = State{Phase: PhaseIdle, RequestID: s.latest}
	id := s.latest
	s.mu.Unlock()

	s.logger.Info().Uint64("request_id", id).Msg("Session reset")
	s.publish(pipeline.EventResultReset, id, gate.File{})
}

// Copy exports the current result as formatted JSON to the clipboard. A
// clipboard failure raises its own notice and leaves the result untouched.
// The exported text is returned on success.
func (s *Session) Copy(clip Clipboard) (string, error) {
	result, err := s.Current()
	if err != nil {
		return "", err
	}
	text, err := result.JSON()
	if err != nil {
		s.raise(NoticeClipboard, "Failed to copy to clipboard")
		return "", err
	}
	if err := clip.WriteAll(text); err != nil {
		s.logger.Error().Err(err).Msg("Clipboard export failed")
		s.raise(NoticeClipboard, "Failed to copy to clipboard")
		return "", err
	}
	s.raise(NoticeCopied, "Copied to clipboard")
	return text, nil
}

// ClearNotice drops the notice with the given id once it has been shown.
// A notice raised after it was rendered stays in place.
func (s *Session) ClearNotice(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Notice == nil || s.state.Notice.ID != id {
		return false
	}
	s.state.Notice = nil
	return true
}

// Close cancels running recognitions and waits for them to release their engines
func (s *Session) Close() {
	s.mu.Lock()
	for id, c := range s.inFlight {
		c()
		delete(s.inFlight, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) raise(kind NoticeKind, message string) {
	s.mu.Lock()
	n := s.setNoticeLocked(kind, message)
	s.mu.Unlock()

	s.emit(n)
}

// setNoticeLocked stores a new notice; s.mu must be held
func (s *Session) setNoticeLocked(kind NoticeKind, message string) Notice {
	s.notices++
	n := Notice{ID: s.notices, Kind: kind, Message: message, At: s.now()}
	s.state.Notice = &n
	return n
}

func (s *Session) emit(n Notice) {
	if n.Kind == NoticeCopied {
		s.logger.Debug().Str("kind", string(n.Kind)).Msg(n.Message)
	} else {
		s.logger.Warn().Str("kind", string(n.Kind)).Msg(n.Message)
	}
	if s.onNotice != nil {
		s.onNotice(n)
	}
}

func (s *Session) publish(eventType pipeline.EventType, id uint64, file gate.File) {
	if s.events == nil {
		return
	}
	event := pipeline.NewEvent(eventType, id, file.Name)
	event.FileType = file.Type
	_ = s.events.Publish(event)
}
