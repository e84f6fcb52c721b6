package presentation

import (
	"github.com/Caia-Tech/caia-ocr/internal/session"
)

// OutputFormat represents the output format
type OutputFormat string

const (
	FormatHTML  OutputFormat = "html"
	FormatPlain OutputFormat = "plain"
	FormatJSON  OutputFormat = "json"
)

// Drop zone hints
const (
	HintIdle       = "Drag & drop an image here, or click to select a file"
	HintDragActive = "Drop the image here..."
	HintAccepted   = "Supports PNG, JPG, JPEG, GIF, BMP (PDF support coming soon)"
)

// View is everything the screen shows for one application state
type View struct {
	Phase        session.Phase   `json:"phase"`
	Hint         string          `json:"hint"`
	Accept       string          `json:"accept"`
	ShowProgress bool            `json:"show_progress"`
	Progress     int             `json:"progress"`
	HasResult    bool            `json:"has_result"`
	WordCount    int             `json:"word_count"`
	Confidence   string          `json:"confidence"`
	FileType     string          `json:"file_type"`
	FileName     string          `json:"file_name"`
	JSON         string          `json:"json"`
	Preview      string          `json:"preview"`
	Notice       *session.Notice `json:"notice,omitempty"`
}

// RendererConfig configures the renderer
type RendererConfig struct {
	PreviewLength int      `json:"preview_length"`
	AcceptList    []string `json:"accept_list"`
	Title         string   `json:"title"`
	RefreshSecs   int      `json:"refresh_secs"` // page refresh while processing
}
