//go:build linux || freebsd || openbsd || netbsd || dragonfly

// Package clipboard copies the annotated result to, and reads source images
// from, the desktop clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

type format int

const (
	formatText format = iota
	formatPNG
)

type selection interface {
	write(f format, data []byte) error
	read(f format) ([]byte, error)
}

var (
	initOnce     sync.Once
	initErr      error
	active       selection
	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
)

func ensureInit() error {
	initOnce.Do(func() {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		active, initErr = openSelection()
	})
	return initErr
}

// WritePNG publishes PNG bytes as image/png.
func WritePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("no image data to copy")
	}
	if err := ensureInit(); err != nil {
		return err
	}
	return active.write(formatPNG, data)
}

// ReadPNG returns the image/png content of the clipboard.
func ReadPNG() ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data, err := active.read(formatPNG)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("clipboard does not contain image data")
	}
	return data, nil
}

// WriteText writes text data to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return active.write(formatText, []byte(text))
}

// ReadText returns UTF-8 text data from the clipboard.
func ReadText() (string, error) {
	if err := ensureInit(); err != nil {
		return "", err
	}
	data, err := active.read(formatText)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("clipboard does not contain text data")
	}
	return string(data), nil
}
