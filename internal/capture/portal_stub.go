//go:build !(linux || freebsd || openbsd || netbsd || dragonfly)

package capture

import (
	"context"
	"image"
)

func portalScreenshot(context.Context, bool) (*image.RGBA, error) {
	return nil, errUnsupportedPlatform
}

func isPortalUnsupportedError(error) bool { return false }
