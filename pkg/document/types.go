package document

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// TimestampFormat is the ISO-8601 layout used for ExtractionResult.Timestamp
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// PreviewLimit is the number of characters shown in a text preview
const PreviewLimit = 500

// PreviewMarker is appended to a truncated preview
const PreviewMarker = "..."

// ExtractionResult is the record produced by one successful recognition.
// Field order is the serialization order.
type ExtractionResult struct {
	Text       string `json:"text"`       // Recognized text, trimmed
	Confidence int    `json:"confidence"` // 0-100
	FileName   string `json:"fileName"`   // Display name of the source file
	FileType   string `json:"fileType"`   // MIME type reported by the source
	Timestamp  string `json:"timestamp"`  // Creation time, ISO-8601 UTC
	WordCount  int    `json:"wordCount"`  // Whitespace-delimited tokens in Text
}

// NewExtractionResult normalizes raw engine output into an ExtractionResult.
// rawConfidence is the engine's fractional confidence.
func NewExtractionResult(rawText string, rawConfidence float64, fileName, fileType string, now time.Time) *ExtractionResult {
	text := strings.TrimSpace(rawText)
	return &ExtractionResult{
		Text:       text,
		Confidence: ConfidencePercent(rawConfidence),
		FileName:   fileName,
		FileType:   fileType,
		Timestamp:  now.UTC().Format(TimestampFormat),
		WordCount:  CountWords(text),
	}
}

// CountWords counts runs of non-whitespace characters
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ConfidencePercent rounds a fractional confidence to an integer percentage.
// Values outside [0,1] are clamped; NaN maps to 0.
func ConfidencePercent(fraction float64) int {
	return RoundPercent(fraction)
}

// RoundPercent maps a fraction to round(fraction*100), rounding halves up,
// clamped to [0,100].
func RoundPercent(fraction float64) int {
	if math.IsNaN(fraction) {
		return 0
	}
	pct := math.Floor(fraction*100 + 0.5)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// Preview returns the first limit characters of the text, followed by
// PreviewMarker when the text is longer. Text itself is never modified.
func (r *ExtractionResult) Preview(limit int) string {
	return TruncatePreview(r.Text, limit)
}

// TruncatePreview cuts s to limit runes and appends PreviewMarker if anything was cut
func TruncatePreview(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + PreviewMarker
		}
		n++
	}
	return s
}

// JSON returns the record as indented, human-readable JSON
func (r *ExtractionResult) JSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FileSubtype returns the uppercased subtype of FileType, e.g. "PNG" for
// image/png. An unparsable type is returned uppercased as-is.
func (r *ExtractionResult) FileSubtype() string {
	t := r.FileType
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	if i := strings.IndexByte(t, '/'); i >= 0 {
		t = t[i+1:]
	}
	return strings.ToUpper(strings.TrimSpace(t))
}

// CreatedAt parses Timestamp back into a time.Time
func (r *ExtractionResult) CreatedAt() (time.Time, error) {
	return time.Parse(TimestampFormat, r.Timestamp)
}
