// Package capture implements the camera-side half of the palm pipeline:
// permission lifecycle and stream acquisition, the per-frame hand-presence
// heuristic, and the session that gates when a frame may be frozen and turned
// into a palm code.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// jpegQuality matches the lossy encoding the palm hash is defined over;
// changing it changes every derived hash.
const jpegQuality = 90

// Frame is one rectangular RGBA pixel buffer taken from the active stream.
// Frames are ephemeral: they are analyzed or encoded and then dropped, never
// persisted.
type Frame struct {
	Width  int
	Height int
	// Pix holds 4 bytes per pixel in R, G, B, A order, row-major.
	Pix []byte
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// FromImage copies an image into a Frame.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	f := NewFrame(bounds.Dx(), bounds.Dy())
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			f.Pix[i+0] = byte(r >> 8)
			f.Pix[i+1] = byte(g >> 8)
			f.Pix[i+2] = byte(b >> 8)
			f.Pix[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return f
}

// SetRGB writes one pixel with full opacity. Out-of-bounds coordinates are a
// programming error and panic via the slice bounds check.
func (f *Frame) SetRGB(x, y int, r, g, b byte) {
	i := (y*f.Width + x) * 4
	f.Pix[i+0] = r
	f.Pix[i+1] = g
	f.Pix[i+2] = b
	f.Pix[i+3] = 0xff
}

// EncodeJPEG serializes the frame to the lossy encoding the code derivation
// is defined over.
func (f *Frame) EncodeJPEG() ([]byte, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("encode frame: empty %dx%d frame", f.Width, f.Height)
	}
	img := &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
