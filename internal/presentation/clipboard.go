package presentation

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when the host has no clipboard utility
var ErrClipboardUnavailable = errors.New("system clipboard is not available")

// SystemClipboard writes to the host clipboard
type SystemClipboard struct{}

// WriteAll replaces the clipboard contents with text
func (SystemClipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard keeps the last exported text; used when no system
// clipboard exists and in tests
type MemoryClipboard struct {
	Text string
}

// WriteAll stores text
func (m *MemoryClipboard) WriteAll(text string) error {
	m.Text = text
	return nil
}
