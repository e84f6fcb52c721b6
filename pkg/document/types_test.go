package document

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 9, 14, 5, 7, 123000000, time.UTC)

func TestNewExtractionResult(t *testing.T) {
	tests := []struct {
		name          string
		rawText       string
		rawConfidence float64
		wantText      string
		wantConf      int
		wantWords     int
	}{
		{
			name:          "trailing newline and inner spaces",
			rawText:       "Hello   World\n",
			rawConfidence: 0.87,
			wantText:      "Hello   World",
			wantConf:      87,
			wantWords:     2,
		},
		{
			name:          "empty text",
			rawText:       "",
			rawConfidence: 0.10,
			wantText:      "",
			wantConf:      10,
			wantWords:     0,
		},
		{
			name:          "whitespace only",
			rawText:       " \n\t  \r\n",
			rawConfidence: 0.5,
			wantText:      "",
			wantConf:      50,
			wantWords:     0,
		},
		{
			name:          "multiline",
			rawText:       "  line one\nline two\n\nthree  ",
			rawConfidence: 0.994,
			wantText:      "line one\nline two\n\nthree",
			wantConf:      99,
			wantWords:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewExtractionResult(tt.rawText, tt.rawConfidence, "scan.png", "image/png", fixedTime)
			assert.Equal(t, tt.wantText, r.Text)
			assert.Equal(t, tt.wantConf, r.Confidence)
			assert.Equal(t, tt.wantWords, r.WordCount)
			assert.Equal(t, "scan.png", r.FileName)
			assert.Equal(t, "image/png", r.FileType)
			assert.Equal(t, "2024-03-09T14:05:07.123Z", r.Timestamp)
			assert.Equal(t, r.WordCount == 0, strings.TrimSpace(r.Text) == "")
		})
	}
}

func TestTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	r := NewExtractionResult("x", 1, "a.png", "image/png", fixedTime.In(loc))
	assert.Equal(t, "2024-03-09T14:05:07.123Z", r.Timestamp)

	parsed, err := r.CreatedAt()
	require.NoError(t, err)
	assert.True(t, parsed.Equal(fixedTime))
}

func TestConfidencePercentRange(t *testing.T) {
	for i := 0; i <= 1000; i++ {
		c := ConfidencePercent(float64(i) / 1000)
		assert.GreaterOrEqual(t, c, 0)
		assert.LessOrEqual(t, c, 100)
	}

	assert.Equal(t, 0, ConfidencePercent(0))
	assert.Equal(t, 100, ConfidencePercent(1))
	assert.Equal(t, 1, ConfidencePercent(0.005))
	assert.Equal(t, 0, ConfidencePercent(-0.3))
	assert.Equal(t, 100, ConfidencePercent(1.7))
	assert.Equal(t, 0, ConfidencePercent(math.NaN()))
	assert.Equal(t, 100, ConfidencePercent(math.Inf(1)))
}

func TestTruncatePreview(t *testing.T) {
	long := strings.Repeat("a", 600)
	preview := TruncatePreview(long, PreviewLimit)
	assert.Equal(t, strings.Repeat("a", 500)+PreviewMarker, preview)

	short := strings.Repeat("b", 400)
	assert.Equal(t, short, TruncatePreview(short, PreviewLimit))

	exact := strings.Repeat("c", 500)
	assert.Equal(t, exact, TruncatePreview(exact, PreviewLimit))

	// Multi-byte characters count as one
	runes := strings.Repeat("é", 501)
	assert.Equal(t, strings.Repeat("é", 500)+PreviewMarker, TruncatePreview(runes, PreviewLimit))
}

func TestPreviewLeavesTextIntact(t *testing.T) {
	r := NewExtractionResult(strings.Repeat("word ", 200), 0.9, "a.png", "image/png", fixedTime)
	before := r.Text
	_ = r.Preview(PreviewLimit)
	assert.Equal(t, before, r.Text)
	assert.Equal(t, 200, r.WordCount)
}

func TestExtractionResultJSON(t *testing.T) {
	r := NewExtractionResult("Hello   World\n", 0.87, "hello.png", "image/png", fixedTime)

	out, err := r.JSON()
	require.NoError(t, err)

	expected := `{
  "text": "Hello   World",
  "confidence": 87,
  "fileName": "hello.png",
  "fileType": "image/png",
  "timestamp": "2024-03-09T14:05:07.123Z",
  "wordCount": 2
}`
	assert.Equal(t, expected, out)

	var decoded ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, *r, decoded)
}

func TestFileSubtype(t *testing.T) {
	tests := map[string]string{
		"image/png":            "PNG",
		"image/jpeg":           "JPEG",
		"image/bmp; charset=x": "BMP",
		"application/pdf":      "PDF",
		"gif":                  "GIF",
		"":                     "",
	}
	for fileType, want := range tests {
		r := &ExtractionResult{FileType: fileType}
		assert.Equal(t, want, r.FileSubtype(), fileType)
	}
}
