//go:build linux || freebsd || openbsd || netbsd || dragonfly

package capture

import (
	"fmt"
	"image"

	"github.com/jezek/xgb/xproto"
)

// pixelBytes returns the bytes per pixel used for depth by the server.
func pixelBytes(setup *xproto.SetupInfo, depth byte) (int, error) {
	for _, format := range setup.PixmapFormats {
		if format.Depth == depth {
			if format.BitsPerPixel < 24 {
				return 0, fmt.Errorf("unsupported pixel format %d bpp", format.BitsPerPixel)
			}
			return int(format.BitsPerPixel) / 8, nil
		}
	}
	return 0, fmt.Errorf("unsupported depth %d", depth)
}

// xImageToRGBA converts a ZPixmap reply in BGR(A) byte order.
func xImageToRGBA(setup *xproto.SetupInfo, reply *xproto.GetImageReply, width, height int, kind string) (*image.RGBA, error) {
	switch {
	case setup == nil:
		return nil, fmt.Errorf("xproto setup unavailable")
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("%s has empty geometry", kind)
	case reply == nil || len(reply.Data) == 0:
		return nil, fmt.Errorf("%s pixels: empty image data", kind)
	}
	bpp, err := pixelBytes(setup, reply.Depth)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	stride := len(reply.Data) / height
	if stride*height != len(reply.Data) || stride < width*bpp {
		return nil, fmt.Errorf("%s pixels: unexpected stride", kind)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := reply.Data[y*stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			s, d := src[x*bpp:], dst[x*4:]
			d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xFF
			// Depth-32 visuals carry real alpha; depth 24 pads with garbage.
			if bpp >= 4 && reply.Depth == 32 {
				d[3] = s[3]
			}
		}
	}
	return img, nil
}
