package api

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/Caia-Tech/caia-ocr/internal/gate"
	"github.com/Caia-Tech/caia-ocr/internal/presentation"
	"github.com/Caia-Tech/caia-ocr/internal/session"
	"github.com/Caia-Tech/caia-ocr/pkg/extractor"
	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Handlers contains the HTTP handlers for the local UI
type Handlers struct {
	session   *session.Session
	renderer  *presentation.Renderer
	clipboard session.Clipboard
	logger    zerolog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(s *session.Session, renderer *presentation.Renderer, clip session.Clipboard) *Handlers {
	return &Handlers{
		session:   s,
		renderer:  renderer,
		clipboard: clip,
		logger:    logging.GetLogger("api"),
	}
}

// Health returns the service health status
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"service":       "caia-ocr",
		"version":       Version,
		"ocr_available": extractor.Available(),
		"timestamp":     time.Now().UTC(),
	})
}

// Index renders the single page UI
func (h *Handlers) Index(c *fiber.Ctx) error {
	st := h.session.Snapshot()

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, presentation.FormatHTML, h.renderer.View(st)); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render page")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	// A notice is shown once; one raised since the snapshot stays
	if st.Notice != nil {
		h.session.ClearNotice(st.Notice.ID)
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// UploadResponse describes a started extraction
type UploadResponse struct {
	RequestID uint64 `json:"request_id"`
	FileName  string `json:"file_name"`
	FileType  string `json:"file_type"`
	Size      int64  `json:"size"`
}

// Upload accepts a dropped file and starts an extraction. With ?wait=true
// the call blocks until the extraction finishes and returns the new state.
func (h *Handlers) Upload(c *fiber.Ctx) error {
	files, err := formFiles(c)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read uploaded files")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "No file uploaded or invalid file format",
			"details": err.Error(),
		})
	}

	ticket, err := h.session.Drop(files)
	if err != nil {
		return dropError(c, err)
	}

	if c.QueryBool("wait") {
		if err := ticket.Wait(c.UserContext()); err != nil {
			return c.Status(fiber.StatusRequestTimeout).JSON(fiber.Map{
				"error":   "Extraction did not finish",
				"details": err.Error(),
			})
		}
		return c.JSON(h.session.Snapshot())
	}

	return c.Status(fiber.StatusAccepted).JSON(UploadResponse{
		RequestID: ticket.ID,
		FileName:  ticket.File.Name,
		FileType:  ticket.File.Type,
		Size:      ticket.File.Size,
	})
}

// UploadForm is the no-script fallback for the page's file input
func (h *Handlers) UploadForm(c *fiber.Ctx) error {
	files, err := formFiles(c)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Form upload carried no file")
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	// Rejections surface as notices on the next render
	_, _ = h.session.Drop(files)
	return c.Redirect("/", fiber.StatusSeeOther)
}

// State returns the current application state
func (h *Handlers) State(c *fiber.Ctx) error {
	return c.JSON(h.session.Snapshot())
}

// CurrentResult returns the live extraction result in its export format
func (h *Handlers) CurrentResult(c *fiber.Ctx) error {
	result, err := h.session.Current()
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	out, err := result.JSON()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Type("json", "utf-8")
	return c.SendString(out)
}

// ResetResult clears the current result
func (h *Handlers) ResetResult(c *fiber.Ctx) error {
	h.session.Reset()
	return c.JSON(h.session.Snapshot())
}

// ResetForm is the page's reset button
func (h *Handlers) ResetForm(c *fiber.Ctx) error {
	h.session.Reset()
	return c.Redirect("/", fiber.StatusSeeOther)
}

// CopyResult exports the current result to the clipboard
func (h *Handlers) CopyResult(c *fiber.Ctx) error {
	text, err := h.session.Copy(h.clipboard)
	switch {
	case errors.Is(err, session.ErrNoResult):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to copy to clipboard",
			"details": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"copied": true,
		"text":   text,
	})
}

// CopyForm is the page's copy button
func (h *Handlers) CopyForm(c *fiber.Ctx) error {
	if _, err := h.session.Copy(h.clipboard); err != nil && !errors.Is(err, session.ErrNoResult) {
		h.logger.Warn().Err(err).Msg("Copy from page failed")
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func dropError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	message := "Upload rejected"

	switch {
	case errors.Is(err, gate.ErrUnsupportedDocument):
		status = fiber.StatusUnsupportedMediaType
		message = gate.ErrUnsupportedDocument.Error()
	case errors.Is(err, gate.ErrRejectedType):
		status = fiber.StatusUnsupportedMediaType
		message = "Unsupported file type"
	case errors.Is(err, gate.ErrFileTooLarge):
		status = fiber.StatusRequestEntityTooLarge
		message = "File too large"
	case errors.Is(err, gate.ErrNoFile):
		message = "No file uploaded"
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   message,
		"details": err.Error(),
	})
}

// formFiles reads every file posted under the "file" field, in order
func formFiles(c *fiber.Ctx) ([]gate.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		return nil, gate.ErrNoFile
	}

	files := make([]gate.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, gate.File{
			Name: fh.Filename,
			Type: fh.Header.Get("Content-Type"),
			Size: fh.Size,
			Data: data,
		})
	}
	return files, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
