// Package encoded converts pixel buffers to PNG bytes and data URLs and back.
package encoded

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
)

const dataURLPrefix = "data:image/png;base64,"

// Image is an encoded capture or annotated result.
type Image struct {
	Width  int
	Height int
	PNG    []byte
}

// DataURL returns the PNG as a base64 data URL.
func (i Image) DataURL() string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(i.PNG)
}

// Empty reports whether no image data is held.
func (i Image) Empty() bool { return len(i.PNG) == 0 }

// Encode writes img as PNG.
func Encode(img image.Image) (Image, error) {
	if img == nil {
		return Image{}, errors.New("encode: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	b := img.Bounds()
	return Image{Width: b.Dx(), Height: b.Dy(), PNG: buf.Bytes()}, nil
}

// Decode accepts raw PNG/JPEG bytes or a base64 data URL.
func Decode(data []byte) (image.Image, error) {
	raw, err := Unwrap(data)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Unwrap strips a data URL header and decodes its payload. Other input is
// returned unchanged.
func Unwrap(data []byte) ([]byte, error) {
	s := string(bytes.TrimSpace(data))
	if !strings.HasPrefix(s, "data:") {
		return data, nil
	}
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return nil, errors.New("data url: missing payload")
	}
	header := s[len("data:"):i]
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data url: unsupported encoding %q", header)
	}
	raw, err := base64.StdEncoding.DecodeString(s[i+1:])
	if err != nil {
		return nil, fmt.Errorf("data url: %w", err)
	}
	return raw, nil
}

// ToRGBA returns img as an *image.RGBA whose bounds start at the origin.
// The source is copied; a nil image yields nil.
func ToRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
