// Package gate decides which dropped files reach the recognition pipeline.
package gate

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/Caia-Tech/caia-ocr/pkg/logging"
	"github.com/rs/zerolog"
)

var (
	// ErrNoFile is returned when a drop carries no acceptable file
	ErrNoFile = errors.New("no file provided")
	// ErrUnsupportedDocument is the document stub's answer to every PDF
	ErrUnsupportedDocument = errors.New("PDF processing is not supported yet; please upload an image")
	// ErrRejectedType is returned for a media type outside the accept list
	ErrRejectedType = errors.New("file type not accepted")
	// ErrFileTooLarge is returned when a file exceeds the configured limit
	ErrFileTooLarge = errors.New("file too large")
)

// Route is where an accepted file goes next
type Route int

const (
	RouteRejected Route = iota
	RouteImage
	RouteDocument
)

func (r Route) String() string {
	switch r {
	case RouteImage:
		return "image"
	case RouteDocument:
		return "document"
	default:
		return "rejected"
	}
}

// MIMEPDF is the one document type the gate recognizes
const MIMEPDF = "application/pdf"

// File is one dropped or selected file
type File struct {
	Name string // display name
	Type string // declared MIME type, may be empty
	Size int64
	Data []byte
}

// extensionTypes is the accept list keyed by extension
var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".pdf":  MIMEPDF,
}

// imageTypes are the image media types routed to recognition
var imageTypes = map[string]bool{
	"image/png":      true,
	"image/jpeg":     true,
	"image/jpg":      true,
	"image/gif":      true,
	"image/bmp":      true,
	"image/x-bmp":    true,
	"image/x-ms-bmp": true,
}

// AcceptedExtensions lists the extensions offered by the file picker
func AcceptedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".pdf"}
}

// MediaType returns the file's declared type, or one derived from its
// extension when none was declared. Parameters are stripped.
func (f File) MediaType() string {
	t := strings.TrimSpace(f.Type)
	if t == "" || t == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if known, ok := extensionTypes[ext]; ok {
			return known
		}
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			t = guessed
		}
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(t)
}

// Classify routes a media type
func Classify(mediaType string) Route {
	mt := strings.ToLower(mediaType)
	switch {
	case mt == MIMEPDF:
		return RouteDocument
	case imageTypes[mt]:
		return RouteImage
	default:
		return RouteRejected
	}
}

// Gate validates incoming files
type Gate struct {
	maxFileSize int64
	logger      zerolog.Logger
}

// New creates a gate. A non-positive maxFileSize disables the size check.
func New(maxFileSize int64) *Gate {
	return &Gate{
		maxFileSize: maxFileSize,
		logger:      logging.GetLogger("gate"),
	}
}

// Filter drops files outside the accept list, like a drop target's accept attribute
func (g *Gate) Filter(files []File) []File {
	accepted := make([]File, 0, len(files))
	for _, f := range files {
		if Classify(f.MediaType()) == RouteRejected {
			g.logger.Debug().
				Str("file_name", f.Name).
				Str("file_type", f.Type).
				Msg("File filtered out by accept list")
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted
}

// Accept picks the first acceptable file of a drop and routes it. Further
// files are ignored. The returned file carries its resolved media type.
func (g *Gate) Accept(files []File) (File, Route, error) {
	accepted := g.Filter(files)
	if len(accepted) == 0 {
		if len(files) > 0 {
			return File{}, RouteRejected, fmt.Errorf("%w: %s", ErrRejectedType, files[0].Name)
		}
		return File{}, RouteRejected, ErrNoFile
	}
	if len(accepted) > 1 {
		g.logger.Debug().Int("ignored", len(accepted)-1).Msg("Only the first file of a drop is processed")
	}

	file := accepted[0]
	file.Type = file.MediaType()
	if file.Size == 0 {
		file.Size = int64(len(file.Data))
	}

	route := Classify(file.Type)
	if route == RouteDocument {
		g.logger.Info().Str("file_name", file.Name).Msg("Document routed to stub")
		return file, route, ErrUnsupportedDocument
	}

	if g.maxFileSize > 0 && file.Size > g.maxFileSize {
		return file, route, fmt.Errorf("%w: %d bytes, maximum is %d bytes", ErrFileTooLarge, file.Size, g.maxFileSize)
	}

	g.logger.Debug().
		Str("file_name", file.Name).
		Str("file_type", file.Type).
		Int64("size", file.Size).
		Msg("File accepted for recognition")
	return file, route, nil
}
