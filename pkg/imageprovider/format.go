// Package imageprovider turns the result of a script image provider into an
// image.Image.
//
// A provider returns (data, (width, height), format). Raw formats carry
// pixels in the host's native layouts and are validated against the
// declared size; Data carries an encoded image file; SVGData carries SVG
// source rasterized at the requested size.
package imageprovider

import (
	"errors"
	"fmt"
)

// MaxDimension bounds the width and height of raw images.
const MaxDimension = 1 << 15

// Format identifies the layout of provider data. Raw format codes match
// the host image format enumeration.
type Format int

const (
	Mono    Format = 1
	MonoLSB Format = 2
	RGB32   Format = 4
	ARGB32  Format = 5
	RGB16   Format = 7
	RGB666  Format = 9
	RGB555  Format = 11
	RGB888  Format = 13
	RGB444  Format = 14

	// Data is an encoded image file (PNG, JPEG, GIF, BMP, WebP).
	Data Format = -1
	// SVGData is SVG source.
	SVGData Format = -2
)

// Errors returned by Validate and Decode.
var (
	ErrShortBuffer = errors.New("imageprovider: not enough image data")
	ErrBadFormat   = errors.New("imageprovider: unsupported format")
	ErrBadSize     = errors.New("imageprovider: invalid image size")
)

// Formats lists every supported format with its script-facing name.
var Formats = []struct {
	Name   string
	Format Format
}{
	{"mono", Mono},
	{"mono_lsb", MonoLSB},
	{"rgb32", RGB32},
	{"argb32", ARGB32},
	{"rgb16", RGB16},
	{"rgb666", RGB666},
	{"rgb555", RGB555},
	{"rgb888", RGB888},
	{"rgb444", RGB444},
	{"data", Data},
	{"svg_data", SVGData},
}

func (f Format) String() string {
	for _, e := range Formats {
		if e.Format == f {
			return e.Name
		}
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// BitsPerPixel returns the pixel size of a raw format, or 0 for encoded
// and unknown formats.
func BitsPerPixel(f Format) int {
	switch f {
	case Mono, MonoLSB:
		return 1
	case RGB32, ARGB32:
		return 32
	case RGB16, RGB555, RGB444:
		return 16
	case RGB666, RGB888:
		return 24
	}
	return 0
}

// MinBytes is the smallest buffer that can hold a tightly packed w×h image.
// Sizes above MaxDimension may overflow; Validate rejects them first.
func MinBytes(f Format, w, h int) int {
	return (BitsPerPixel(f)*w*h + 7) / 8
}

// Stride is the length of one scanline padded to 4-byte alignment.
func Stride(f Format, w int) int {
	return (w*BitsPerPixel(f) + 31) / 32 * 4
}

// Validate checks data against a declared format and size.
func Validate(data []byte, f Format, w, h int) error {
	switch f {
	case Data, SVGData:
		if len(data) == 0 {
			return ErrShortBuffer
		}
		return nil
	}
	if BitsPerPixel(f) == 0 {
		return fmt.Errorf("%w: %d", ErrBadFormat, int(f))
	}
	if w <= 0 || h <= 0 || w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrBadSize, w, h)
	}
	if need := MinBytes(f, w, h); len(data) < need {
		return fmt.Errorf("%w: got %d bytes, need %d for %dx%d %s", ErrShortBuffer, len(data), need, w, h, f)
	}
	return nil
}

// Pad returns data laid out with 4-byte aligned scanlines, and the stride.
// Data that already covers the padded size is returned as is; tightly
// packed data is repacked into a new buffer. 32-bit formats are always
// aligned. Validate must have accepted data.
func Pad(data []byte, f Format, w, h int) ([]byte, int) {
	stride := Stride(f, w)
	if len(data) >= stride*h {
		return data[:stride*h], stride
	}

	bpp := BitsPerPixel(f)
	out := make([]byte, stride*h)
	if bpp%8 == 0 {
		row := w * bpp / 8
		for y := range h {
			copy(out[y*stride:y*stride+row], data[y*row:(y+1)*row])
		}
		return out, stride
	}

	// Sub-byte formats: rows start at arbitrary bit offsets.
	bits := w * bpp
	for y := range h {
		for x := range bits {
			if bitAt(data, y*bits+x, f) {
				setBit(out[y*stride:], x, f)
			}
		}
	}
	return out, stride
}

func bitAt(b []byte, n int, f Format) bool {
	if f == MonoLSB {
		return b[n/8]&(1<<(n%8)) != 0
	}
	return b[n/8]&(0x80>>(n%8)) != 0
}

func setBit(b []byte, n int, f Format) {
	if f == MonoLSB {
		b[n/8] |= 1 << (n % 8)
		return
	}
	b[n/8] |= 0x80 >> (n % 8)
}
