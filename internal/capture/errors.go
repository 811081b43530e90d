package capture

import (
	"errors"
	"fmt"
)

// ErrNoHost is returned when a processor has nothing to capture from.
var ErrNoHost = errors.New("no capture host configured")

// CaptureError reports a failed capture. Backend names the host that failed.
type CaptureError struct {
	Backend string
	Err     error
}

func (e *CaptureError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("capture failed: %v", e.Err)
	}
	return fmt.Sprintf("capture failed (%s): %v", e.Backend, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// AlreadyInProgressError is returned when Capture is called while another
// capture on the same processor has not finished.
type AlreadyInProgressError struct{}

func (*AlreadyInProgressError) Error() string { return "capture already in progress" }
