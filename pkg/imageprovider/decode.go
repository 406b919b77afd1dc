package imageprovider

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Size is a requested or reported image size. Zero or negative components
// are unspecified.
type Size struct {
	Width  int
	Height int
}

// Result is what a provider returned.
type Result struct {
	Data   []byte
	Width  int
	Height int
	Format Format
}

// Decode converts a provider result into an image. requested is the size
// the UI asked for; it only affects SVG rasterization. Tightly packed raw
// scanlines are accepted and re-padded rather than rejected.
func Decode(res Result, requested Size) (image.Image, error) {
	if err := Validate(res.Data, res.Format, res.Width, res.Height); err != nil {
		return nil, err
	}
	switch res.Format {
	case Data:
		img, _, err := image.Decode(bytes.NewReader(res.Data))
		if err != nil {
			return nil, fmt.Errorf("imageprovider: decode data: %w", err)
		}
		return img, nil
	case SVGData:
		return rasterizeSVG(res.Data, requested)
	}

	buf, stride := Pad(res.Data, res.Format, res.Width, res.Height)
	img := image.NewNRGBA(image.Rect(0, 0, res.Width, res.Height))
	for y := range res.Height {
		row := buf[y*stride : (y+1)*stride]
		for x := range res.Width {
			img.SetNRGBA(x, y, pixel(row, x, res.Format))
		}
	}
	return img, nil
}

func pixel(row []byte, x int, f Format) color.NRGBA {
	switch f {
	case Mono, MonoLSB:
		if bitAt(row, x, f) {
			return color.NRGBA{0xff, 0xff, 0xff, 0xff}
		}
		return color.NRGBA{0, 0, 0, 0xff}
	case RGB32:
		p := row[x*4:]
		return color.NRGBA{p[2], p[1], p[0], 0xff}
	case ARGB32:
		p := row[x*4:]
		return color.NRGBA{p[2], p[1], p[0], p[3]}
	case RGB888:
		p := row[x*3:]
		return color.NRGBA{p[0], p[1], p[2], 0xff}
	case RGB666:
		p := row[x*3:]
		v := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
		return color.NRGBA{scale(v>>12, 6), scale(v>>6, 6), scale(v, 6), 0xff}
	}

	v := uint32(row[x*2]) | uint32(row[x*2+1])<<8
	switch f {
	case RGB16:
		return color.NRGBA{scale(v>>11, 5), scale(v>>5, 6), scale(v, 5), 0xff}
	case RGB555:
		return color.NRGBA{scale(v>>10, 5), scale(v>>5, 5), scale(v, 5), 0xff}
	default: // RGB444
		return color.NRGBA{scale(v>>8, 4), scale(v>>4, 4), scale(v, 4), 0xff}
	}
}

// scale expands the low bits of v to 8 bits.
func scale(v uint32, bits uint) uint8 {
	maxv := uint32(1)<<bits - 1
	return uint8((v & maxv) * 255 / maxv)
}

func rasterizeSVG(data []byte, requested Size) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imageprovider: parse svg: %w", err)
	}
	iw, ih := icon.ViewBox.W, icon.ViewBox.H

	w, h := requested.Width, requested.Height
	switch {
	case w <= 0 && h <= 0:
		w, h = int(math.Round(iw)), int(math.Round(ih))
	case w <= 0 && ih > 0:
		w = int(math.Round(float64(h) * iw / ih))
	case h <= 0 && iw > 0:
		h = int(math.Round(float64(w) * ih / iw))
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: svg %gx%g requested %dx%d", ErrBadSize, iw, ih, requested.Width, requested.Height)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return img, nil
}
