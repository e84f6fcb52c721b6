package gate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
)

// ErrMalformedImage is returned when image bytes are empty or cut short
var ErrMalformedImage = errors.New("malformed image")

// ErrUndecodedImage is returned when the header is not one the built-in
// decoders understand (16-bit or RLE bitmaps, arithmetic-coded JPEGs,
// unknown signatures). The engine reads far more variants, so callers
// should hand such files on rather than reject them.
var ErrUndecodedImage = errors.New("image header not decodable before recognition")

// ImageInfo describes a decoded image header
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Probe decodes only the image header. Empty or truncated data fails with
// ErrMalformedImage before an engine is acquired; a header in a variant the
// decoders cannot read fails with ErrUndecodedImage.
func Probe(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty file", ErrMalformedImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if undecodable(err) {
			return ImageInfo{Format: format}, fmt.Errorf("%w: %v", ErrUndecodedImage, err)
		}
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrMalformedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, fmt.Errorf("%w: %dx%d", ErrMalformedImage, cfg.Width, cfg.Height)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func undecodable(err error) bool {
	var jpegErr jpeg.UnsupportedError
	var pngErr png.UnsupportedError
	return errors.Is(err, image.ErrFormat) ||
		errors.Is(err, bmp.ErrUnsupported) ||
		errors.As(err, &jpegErr) ||
		errors.As(err, &pngErr)
}
