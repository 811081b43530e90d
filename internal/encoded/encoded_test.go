package encoded

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestEncodeDecodeDataURL(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.RGBA{R: 255, A: 255})
	enc, err := Encode(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if enc.Width != 3 || enc.Height != 2 {
		t.Fatalf("unexpected size %dx%d", enc.Width, enc.Height)
	}
	url := enc.DataURL()
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("unexpected data url prefix %q", url[:30])
	}
	for _, src := range [][]byte{enc.PNG, []byte(url)} {
		got, err := Decode(src)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		r, _, _, a := got.At(2, 1).RGBA()
		if r>>8 != 255 || a>>8 != 255 {
			t.Fatalf("pixel not preserved: r=%d a=%d", r>>8, a>>8)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, in := range []string{"not an image", "data:image/png,raw", "data:image/png;base64", "data:image/png;base64,@@@"} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestToRGBANormalizesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 14, 23))
	src.Set(11, 21, color.RGBA{G: 200, A: 255})
	out := ToRGBA(src)
	if out.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if c := out.RGBAAt(1, 1); c.G != 200 {
		t.Fatalf("pixel not copied, got %+v", c)
	}
	out.Set(1, 1, color.RGBA{})
	if src.RGBAAt(11, 21).G != 200 {
		t.Fatalf("source must not share pixels")
	}
}
