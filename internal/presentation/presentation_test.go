package presentation

import (
	"bytes"
	"html"
	"strings"
	"testing"
	"time"

	"github.com/Caia-Tech/caia-ocr/internal/session"
	"github.com/Caia-Tech/caia-ocr/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultState(text string) session.State {
	r := document.NewExtractionResult(text, 0.87, "invoice.png", "image/png", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	return session.State{Phase: session.PhaseResult, Progress: 100, Result: r, RequestID: 1}
}

func TestViewIdle(t *testing.T) {
	r := NewRenderer(nil)
	v := r.View(session.State{Phase: session.PhaseIdle})

	assert.False(t, v.ShowProgress)
	assert.False(t, v.HasResult)
	assert.Equal(t, HintIdle, v.Hint)
	assert.Equal(t, ".png,.jpg,.jpeg,.gif,.bmp,.pdf", v.Accept)
}

func TestViewProcessingShowsProgressOnly(t *testing.T) {
	r := NewRenderer(nil)
	v := r.View(session.State{Phase: session.PhaseProcessing, Processing: true, Progress: 42})

	assert.True(t, v.ShowProgress)
	assert.Equal(t, 42, v.Progress)
	assert.False(t, v.HasResult)
}

func TestViewResult(t *testing.T) {
	r := NewRenderer(nil)
	v := r.View(resultState("Hello   World\n"))

	assert.True(t, v.HasResult)
	assert.False(t, v.ShowProgress)
	assert.Equal(t, 2, v.WordCount)
	assert.Equal(t, "87%", v.Confidence)
	assert.Equal(t, "PNG", v.FileType)
	assert.Equal(t, "invoice.png", v.FileName)
	assert.Equal(t, "Hello   World", v.Preview)
	assert.Contains(t, v.JSON, `"confidence": 87`)
}

func TestViewPreviewTruncation(t *testing.T) {
	r := NewRenderer(nil)

	long := r.View(resultState(strings.Repeat("x", 600)))
	assert.Equal(t, strings.Repeat("x", 500)+document.PreviewMarker, long.Preview)
	// The JSON dump carries the full text
	assert.Contains(t, long.JSON, strings.Repeat("x", 600))

	short := r.View(resultState(strings.Repeat("y", 400)))
	assert.Equal(t, strings.Repeat("y", 400), short.Preview)
}

func TestDropHint(t *testing.T) {
	assert.Equal(t, HintDragActive, DropHint(true))
	assert.Equal(t, HintIdle, DropHint(false))
}

func TestRenderHTML(t *testing.T) {
	r := NewRenderer(nil)

	var buf bytes.Buffer
	require.NoError(t, r.RenderHTML(&buf, r.View(resultState("<script>alert(1)</script> total 42"))))
	page := buf.String()

	assert.Contains(t, page, "87%")
	assert.Contains(t, page, "invoice.png")
	assert.Contains(t, page, `accept=".png,.jpg,.jpeg,.gif,.bmp,.pdf"`)
	assert.Contains(t, page, `action="/reset"`)
	assert.Contains(t, page, `action="/copy"`)
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.NotContains(t, page, `http-equiv="refresh"`)
}

func TestRenderHTMLProcessingRefreshes(t *testing.T) {
	r := NewRenderer(&RendererConfig{RefreshSecs: 2})

	var buf bytes.Buffer
	require.NoError(t, r.RenderHTML(&buf, r.View(session.State{Phase: session.PhaseProcessing, Processing: true, Progress: 30})))
	page := buf.String()

	assert.Contains(t, page, `http-equiv="refresh" content="2"`)
	assert.Contains(t, page, "Processing... 30%")
	assert.NotContains(t, page, "Copy JSON")
}

func TestRenderHTMLNotice(t *testing.T) {
	r := NewRenderer(nil)
	st := session.State{Phase: session.PhaseIdle, Notice: &session.Notice{Kind: session.NoticeUnsupported, Message: "PDF processing is not supported yet"}}

	var buf bytes.Buffer
	require.NoError(t, r.RenderHTML(&buf, r.View(st)))
	assert.Contains(t, buf.String(), `class="notice unsupported"`)
	assert.Contains(t, buf.String(), "PDF processing is not supported yet")
}

func TestRenderText(t *testing.T) {
	r := NewRenderer(nil)

	var buf bytes.Buffer
	require.NoError(t, r.RenderText(&buf, r.View(resultState("Hello   World"))))
	out := buf.String()
	assert.Contains(t, out, "Words:      2")
	assert.Contains(t, out, "Confidence: 87%")
	assert.Contains(t, out, "Format:     PNG")
	assert.Contains(t, out, "Text preview:\nHello   World")

	buf.Reset()
	require.NoError(t, r.RenderText(&buf, r.View(resultState(""))))
	assert.Contains(t, buf.String(), "(no text found)")

	buf.Reset()
	require.NoError(t, r.RenderText(&buf, r.View(session.State{Processing: true, Progress: 55})))
	assert.Contains(t, buf.String(), "Processing... 55%")
}

func TestRenderByFormat(t *testing.T) {
	r := NewRenderer(nil)
	v := r.View(resultState("Hello   World"))

	var page bytes.Buffer
	require.NoError(t, r.Render(&page, FormatHTML, v))
	assert.Contains(t, page.String(), "<!DOCTYPE html>")
	// Both drop zone hints reach the page script
	assert.Contains(t, page.String(), `data-idle="`+html.EscapeString(DropHint(false))+`"`)
	assert.Contains(t, page.String(), `data-active="`+DropHint(true)+`"`)

	var plain bytes.Buffer
	require.NoError(t, r.Render(&plain, FormatPlain, v))
	assert.Contains(t, plain.String(), "Confidence: 87%")

	var record bytes.Buffer
	require.NoError(t, r.Render(&record, FormatJSON, v))
	assert.Equal(t, v.JSON+"\n", record.String())

	var empty bytes.Buffer
	require.NoError(t, r.Render(&empty, FormatJSON, r.View(session.State{Phase: session.PhaseIdle})))
	assert.Empty(t, empty.String())

	assert.ErrorIs(t, r.Render(&empty, OutputFormat("yaml"), v), ErrUnknownFormat)
}

func TestRenderProgressBar(t *testing.T) {
	assert.Equal(t, "[----------]   0%", RenderProgressBar(0, 10))
	assert.Equal(t, "[#####-----]  50%", RenderProgressBar(50, 10))
	assert.Equal(t, "[##########] 100%", RenderProgressBar(140, 10))
}

func TestMemoryClipboard(t *testing.T) {
	var clip MemoryClipboard
	require.NoError(t, clip.WriteAll("copied"))
	assert.Equal(t, "copied", clip.Text)
}
