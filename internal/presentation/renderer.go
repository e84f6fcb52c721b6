package presentation

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/internal/session"
	"github.com/Caia-Tech/caia-ocr/pkg/document"
	"github.com/rs/zerolog/log"
)

// ErrUnknownFormat is returned by Render for an unsupported OutputFormat
var ErrUnknownFormat = errors.New("unknown output format")

// Renderer turns session state into something a person can look at
type Renderer struct {
	config *RendererConfig
	page   *template.Template
}

// NewRenderer creates a renderer; a nil config gets defaults
func NewRenderer(config *RendererConfig) *Renderer {
	if config == nil {
		config = &RendererConfig{}
	}
	if config.PreviewLength <= 0 {
		config.PreviewLength = document.PreviewLimit
	}
	if len(config.AcceptList) == 0 {
		config.AcceptList = gate.AcceptedExtensions()
	}
	if config.Title == "" {
		config.Title = "Image to Text"
	}
	if config.RefreshSecs <= 0 {
		config.RefreshSecs = 1
	}

	return &Renderer{
		config: config,
		page:   template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// View builds the view model for a state
func (r *Renderer) View(st session.State) View {
	v := View{
		Phase:        st.Phase,
		Hint:         DropHint(false),
		Accept:       strings.Join(r.config.AcceptList, ","),
		ShowProgress: st.Processing,
		Progress:     st.Progress,
		Notice:       st.Notice,
	}

	if st.Result != nil {
		v.HasResult = true
		v.WordCount = st.Result.WordCount
		v.Confidence = fmt.Sprintf("%d%%", st.Result.Confidence)
		v.FileType = st.Result.FileSubtype()
		v.FileName = st.Result.FileName
		v.Preview = st.Result.Preview(r.config.PreviewLength)

		out, err := st.Result.JSON()
		if err != nil {
			log.Error().Err(err).Msg("Failed to format extraction result")
		}
		v.JSON = out
	}

	return v
}

// DropHint returns the drop zone text for the drag state
func DropHint(dragActive bool) string {
	if dragActive {
		return HintDragActive
	}
	return HintIdle
}

// Render writes v in the requested format. FormatJSON writes only the
// export record, or nothing when there is no result.
func (r *Renderer) Render(w io.Writer, format OutputFormat, v View) error {
	switch format {
	case FormatHTML:
		return r.RenderHTML(w, v)
	case FormatPlain:
		return r.RenderText(w, v)
	case FormatJSON:
		if !v.HasResult {
			return nil
		}
		_, err := io.WriteString(w, v.JSON+"\n")
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// RenderHTML writes the single page UI
func (r *Renderer) RenderHTML(w io.Writer, v View) error {
	data := struct {
		View
		Title       string
		Refresh     int
		HintActive  string
		HintFormats string
	}{
		View:        v,
		Title:       r.config.Title,
		Refresh:     r.config.RefreshSecs,
		HintActive:  DropHint(true),
		HintFormats: HintAccepted,
	}
	return r.page.Execute(w, data)
}

// RenderText writes a terminal rendering of the view
func (r *Renderer) RenderText(w io.Writer, v View) error {
	var b strings.Builder

	if v.Notice != nil {
		fmt.Fprintf(&b, "! %s\n", v.Notice.Message)
	}

	switch {
	case v.ShowProgress:
		fmt.Fprintf(&b, "Processing... %d%%\n", v.Progress)
	case !v.HasResult:
		fmt.Fprintf(&b, "%s\n%s\n", v.Hint, HintAccepted)
	}

	if v.HasResult {
		fmt.Fprintf(&b, "Words:      %d\n", v.WordCount)
		fmt.Fprintf(&b, "Confidence: %s\n", v.Confidence)
		fmt.Fprintf(&b, "Format:     %s\n", v.FileType)
		fmt.Fprintf(&b, "File:       %s\n", v.FileName)
		b.WriteString("\nExtracted data (JSON):\n")
		b.WriteString(v.JSON)
		b.WriteString("\n\nText preview:\n")
		if v.Preview == "" {
			b.WriteString("(no text found)")
		} else {
			b.WriteString(v.Preview)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderProgressBar draws a fixed-width bar for the CLI
func RenderProgressBar(percent, width int) string {
	if width <= 0 {
		width = 30
	}
	percent = document.RoundPercent(float64(percent) / 100)
	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), percent)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .ShowProgress}}<meta http-equiv="refresh" content="{{.Refresh}}">{{end}}
<style>
body { font-family: system-ui, sans-serif; max-width: 56rem; margin: 2rem auto; color: #1f2937; }
.dropzone { border: 2px dashed #9ca3af; border-radius: .75rem; padding: 3rem; text-align: center; cursor: pointer; }
.dropzone.active { border-color: #2563eb; background: #eff6ff; }
.notice { padding: .75rem 1rem; border-radius: .5rem; margin: 1rem 0; background: #fef2f2; color: #991b1b; }
.notice.copied { background: #ecfdf5; color: #065f46; }
.bar { height: .5rem; background: #e5e7eb; border-radius: .25rem; overflow: hidden; }
.bar span { display: block; height: 100%; background: #2563eb; }
.stats { display: grid; grid-template-columns: repeat(3, 1fr); gap: 1rem; margin: 1rem 0; }
.stats div { background: #f3f4f6; border-radius: .5rem; padding: 1rem; text-align: center; }
pre { background: #111827; color: #e5e7eb; padding: 1rem; border-radius: .5rem; overflow: auto; white-space: pre-wrap; }
.preview { background: #f9fafb; padding: 1rem; border-radius: .5rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{with .Notice}}<div class="notice {{.Kind}}">{{.Message}}</div>{{end}}

<form id="upload" method="post" action="/upload" enctype="multipart/form-data">
<label class="dropzone" id="dropzone">
<input type="file" name="file" accept="{{.Accept}}" hidden onchange="this.form.submit()">
<p id="hint" data-idle="{{.Hint}}" data-active="{{.HintActive}}">{{.Hint}}</p>
<small>{{.HintFormats}}</small>
</label>
</form>

{{if .ShowProgress}}
<p>Processing... {{.Progress}}%</p>
<div class="bar"><span style="width: {{.Progress}}%"></span></div>
{{end}}

{{if .HasResult}}
<div class="stats">
<div><strong>{{.WordCount}}</strong><br>Words</div>
<div><strong>{{.Confidence}}</strong><br>Confidence</div>
<div><strong>{{.FileType}}</strong><br>Format</div>
</div>
<p>File: {{.FileName}}</p>
<form method="post" action="/copy" style="display:inline"><button type="submit">Copy JSON</button></form>
<form method="post" action="/reset" style="display:inline"><button type="submit">Reset</button></form>
<h2>Extracted data (JSON)</h2>
<pre>{{.JSON}}</pre>
<h2>Text preview</h2>
<div class="preview">{{if .Preview}}{{.Preview}}{{else}}<em>No text found</em>{{end}}</div>
{{end}}

<script>
(function () {
  var zone = document.getElementById("dropzone");
  var hint = document.getElementById("hint");
  var input = zone.querySelector("input");
  function active(on) {
    zone.classList.toggle("active", on);
    hint.textContent = on ? hint.dataset.active : hint.dataset.idle;
  }
  zone.addEventListener("dragover", function (e) { e.preventDefault(); active(true); });
  zone.addEventListener("dragleave", function () { active(false); });
  zone.addEventListener("drop", function (e) {
    e.preventDefault();
    active(false);
    if (e.dataTransfer.files.length) {
      input.files = e.dataTransfer.files;
      input.form.submit();
    }
  });
})();
</script>
</body>
</html>
`
