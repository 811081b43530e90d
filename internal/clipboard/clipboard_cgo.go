//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"golang.design/x/clipboard"
)

// designSelection uses the cgo-backed golang.design clipboard.
type designSelection struct{}

func openSelection() (selection, error) {
	if err := clipboard.Init(); err != nil {
		return nil, err
	}
	return designSelection{}, nil
}

func (designSelection) write(f format, data []byte) error {
	clipboard.Write(designFormat(f), data)
	return nil
}

func (designSelection) read(f format) ([]byte, error) {
	return clipboard.Read(designFormat(f)), nil
}

func designFormat(f format) clipboard.Format {
	if f == formatPNG {
		return clipboard.FmtImage
	}
	return clipboard.FmtText
}
