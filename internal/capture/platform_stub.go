//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package capture

import (
	"errors"
	"image"
)

var errUnsupportedPlatform = errors.New("desktop capture is not supported on this platform")

type unsupportedBackend struct{}

func newBackend() platformBackend {
	return unsupportedBackend{}
}

func (unsupportedBackend) ListMonitors() ([]MonitorInfo, error) { return nil, errUnsupportedPlatform }
func (unsupportedBackend) ListWindows() ([]WindowInfo, error)   { return nil, errUnsupportedPlatform }
func (unsupportedBackend) SetMapped(uint32, bool) error         { return errUnsupportedPlatform }
func (unsupportedBackend) CaptureRoot() (*image.RGBA, error)    { return nil, errUnsupportedPlatform }

func runningOnWayland() bool { return false }
