package imageprovider_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/haivivi/starside/pkg/imageprovider"
)

func TestValidateARGB32(t *testing.T) {
	if err := imageprovider.Validate(make([]byte, 400), imageprovider.ARGB32, 10, 10); err != nil {
		t.Fatalf("400 bytes rejected: %v", err)
	}
	err := imageprovider.Validate(make([]byte, 399), imageprovider.ARGB32, 10, 10)
	if !errors.Is(err, imageprovider.ErrShortBuffer) {
		t.Fatalf("399 bytes err = %v, want ErrShortBuffer", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		n    int
		f    imageprovider.Format
		w, h int
		want error
	}{
		{"mono exact", 2, imageprovider.Mono, 3, 5, nil},
		{"mono short", 1, imageprovider.Mono, 3, 5, imageprovider.ErrShortBuffer},
		{"rgb888", 3 * 4 * 4, imageprovider.RGB888, 4, 4, nil},
		{"rgb16 short", 7, imageprovider.RGB16, 2, 2, imageprovider.ErrShortBuffer},
		{"unknown format", 100, imageprovider.Format(3), 2, 2, imageprovider.ErrBadFormat},
		{"zero size", 100, imageprovider.RGB32, 0, 2, imageprovider.ErrBadSize},
		{"too wide", 4, imageprovider.ARGB32, imageprovider.MaxDimension + 1, 1, imageprovider.ErrBadSize},
		{"overflowing size", 4, imageprovider.ARGB32, 1<<31 - 1, 1<<31 - 1, imageprovider.ErrBadSize},
		{"largest size", 0, imageprovider.Mono, imageprovider.MaxDimension, imageprovider.MaxDimension, imageprovider.ErrShortBuffer},
		{"empty data", 0, imageprovider.Data, 0, 0, imageprovider.ErrShortBuffer},
		{"data ignores size", 1, imageprovider.Data, -1, -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := imageprovider.Validate(make([]byte, tt.n), tt.f, tt.w, tt.h)
			if tt.want == nil && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeRejectsOverflowingSize(t *testing.T) {
	res := imageprovider.Result{Data: make([]byte, 4), Width: 1<<31 - 1, Height: 1<<31 - 1, Format: imageprovider.ARGB32}
	if _, err := imageprovider.Decode(res, imageprovider.Size{}); !errors.Is(err, imageprovider.ErrBadSize) {
		t.Fatalf("err = %v, want ErrBadSize", err)
	}
}

func TestBitsPerPixel(t *testing.T) {
	tests := map[imageprovider.Format]int{
		imageprovider.Mono:    1,
		imageprovider.MonoLSB: 1,
		imageprovider.RGB32:   32,
		imageprovider.ARGB32:  32,
		imageprovider.RGB16:   16,
		imageprovider.RGB555:  16,
		imageprovider.RGB444:  16,
		imageprovider.RGB666:  24,
		imageprovider.RGB888:  24,
		imageprovider.Data:    0,
	}
	for f, want := range tests {
		if got := imageprovider.BitsPerPixel(f); got != want {
			t.Errorf("BitsPerPixel(%v) = %d, want %d", f, got, want)
		}
	}
}

func TestPad(t *testing.T) {
	// 3 RGB888 pixels per row: 9 bytes packed, 12 padded.
	packed := []byte{
		1, 2, 3, 4, 5, 6, 7, 8, 9,
		10, 11, 12, 13, 14, 15, 16, 17, 18,
	}
	buf, stride := imageprovider.Pad(packed, imageprovider.RGB888, 3, 2)
	if stride != 12 || len(buf) != 24 {
		t.Fatalf("stride = %d, len = %d", stride, len(buf))
	}
	if buf[12] != 10 || buf[20] != 18 || buf[9] != 0 {
		t.Fatalf("repacked = %v", buf)
	}

	padded := make([]byte, 24)
	if out, _ := imageprovider.Pad(padded, imageprovider.RGB888, 3, 2); &out[0] != &padded[0] {
		t.Fatal("already padded data should not be copied")
	}
}

func TestDecodeMono(t *testing.T) {
	// 3x2 image, tightly packed across rows: 101 010.
	data := []byte{0b10101000}
	img, err := imageprovider.Decode(imageprovider.Result{
		Data: data, Width: 3, Height: 2, Format: imageprovider.Mono,
	}, imageprovider.Size{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := [][]bool{{true, false, true}, {false, true, false}}
	for y, row := range want {
		for x, white := range row {
			r, _, _, _ := img.At(x, y).RGBA()
			if (r != 0) != white {
				t.Errorf("pixel (%d,%d) white = %v, want %v", x, y, r != 0, white)
			}
		}
	}
}

func TestDecodeRawColors(t *testing.T) {
	tests := []struct {
		name string
		f    imageprovider.Format
		data []byte
		want color.NRGBA
	}{
		{"argb32", imageprovider.ARGB32, []byte{0x30, 0x20, 0x10, 0x80}, color.NRGBA{0x10, 0x20, 0x30, 0x80}},
		{"rgb32", imageprovider.RGB32, []byte{0x30, 0x20, 0x10, 0x00}, color.NRGBA{0x10, 0x20, 0x30, 0xff}},
		{"rgb888", imageprovider.RGB888, []byte{0x10, 0x20, 0x30, 0}, color.NRGBA{0x10, 0x20, 0x30, 0xff}},
		{"rgb16 red", imageprovider.RGB16, []byte{0x00, 0xf8, 0, 0}, color.NRGBA{0xff, 0, 0, 0xff}},
		{"rgb555 green", imageprovider.RGB555, []byte{0xe0, 0x03, 0, 0}, color.NRGBA{0, 0xff, 0, 0xff}},
		{"rgb444 blue", imageprovider.RGB444, []byte{0x0f, 0x00, 0, 0}, color.NRGBA{0, 0, 0xff, 0xff}},
		{"rgb666 white", imageprovider.RGB666, []byte{0xff, 0xff, 0x03, 0}, color.NRGBA{0xff, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := imageprovider.Decode(imageprovider.Result{
				Data: tt.data, Width: 1, Height: 1, Format: tt.f,
			}, imageprovider.Size{})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != tt.want {
				t.Fatalf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeData(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 1, color.NRGBA{0xff, 0, 0, 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	img, err := imageprovider.Decode(imageprovider.Result{
		Data: buf.Bytes(), Width: -1, Height: -1, Format: imageprovider.Data,
	}, imageprovider.Size{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("bounds = %v", b)
	}

	_, err = imageprovider.Decode(imageprovider.Result{
		Data: []byte("not an image"), Format: imageprovider.Data,
	}, imageprovider.Size{})
	if err == nil {
		t.Fatal("expected decode error")
	}
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10" width="20" height="10">
<rect x="0" y="0" width="20" height="10" fill="#ff0000"/>
</svg>`

func TestDecodeSVGSizes(t *testing.T) {
	tests := []struct {
		name      string
		requested imageprovider.Size
		w, h      int
	}{
		{"intrinsic", imageprovider.Size{}, 20, 10},
		{"width only", imageprovider.Size{Width: 40}, 40, 20},
		{"height only", imageprovider.Size{Height: 30}, 60, 30},
		{"both", imageprovider.Size{Width: 8, Height: 8}, 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := imageprovider.Decode(imageprovider.Result{
				Data: []byte(testSVG), Format: imageprovider.SVGData,
			}, tt.requested)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.w || b.Dy() != tt.h {
				t.Fatalf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.w, tt.h)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	if got := imageprovider.ARGB32.String(); got != "argb32" {
		t.Fatalf("String() = %q", got)
	}
	if got := imageprovider.Format(42).String(); got != "format(42)" {
		t.Fatalf("String() = %q", got)
	}
}
