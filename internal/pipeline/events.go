package pipeline

import (
	"time"

	"github.com/Caia-Tech/caia-ocr/pkg/document"
	"github.com/google/uuid"
)

// EventType represents the type of recognition lifecycle event
type EventType string

const (
	EventRecognitionStarted   EventType = "recognition.started"
	EventRecognitionProgress  EventType = "recognition.progress"
	EventRecognitionCompleted EventType = "recognition.completed"
	EventRecognitionFailed    EventType = "recognition.failed"
	EventDocumentUnsupported  EventType = "document.unsupported"
	EventResultReset          EventType = "result.reset"
)

// Event represents one step in the life of a recognition request
type Event struct {
	ID        string                     `json:"id"`
	Type      EventType                  `json:"type"`
	RequestID uint64                     `json:"request_id"`
	Timestamp time.Time                  `json:"timestamp"`
	FileName  string                     `json:"file_name,omitempty"`
	FileType  string                     `json:"file_type,omitempty"`
	Progress  int                        `json:"progress,omitempty"`
	Duration  time.Duration              `json:"duration,omitempty"`
	Result    *document.ExtractionResult `json:"result,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// NewEvent creates a new event for a request
func NewEvent(eventType EventType, requestID uint64, fileName string) *Event {
	return &Event{
		ID:        GenerateEventID(),
		Type:      eventType,
		RequestID: requestID,
		Timestamp: time.Now(),
		FileName:  fileName,
	}
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}
