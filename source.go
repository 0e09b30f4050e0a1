package xblit

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// SourceImage is a logical view over caller-owned pixel data in the
// canonical layout: 8 bits per channel, channels packed per pixel, rows
// addressed through byte strides.
//
// Negative strides read the data mirrored: Delta < 0 flips horizontally,
// LineDelta < 0 flips vertically. Off must then address the first channel
// of the logical top-left pixel, wherever it lives in Pix.
type SourceImage struct {
	// Pix holds the pixel data; Off is the byte offset of channel 0 of the
	// logical pixel (0,0).
	Pix []byte
	Off int

	Width  int
	Height int

	// Channels is 1 (grey), 2 (grey+alpha), 3 (RGB) or 4 (RGBA). Together
	// with Alpha it fully determines which converter variant applies.
	Channels int

	// Alpha requests blending of the alpha channel; meaningful only for 2
	// and 4 channels. When false the alpha bytes are skipped as padding.
	Alpha bool

	// Delta is the byte stride between pixels; zero means Channels.
	Delta int

	// LineDelta is the byte stride between rows; zero means Width*|Delta|.
	LineDelta int
}

func (s *SourceImage) delta() int {
	if s.Delta != 0 {
		return s.Delta
	}
	return s.Channels
}

func (s *SourceImage) lineDelta() int {
	if s.LineDelta != 0 {
		return s.LineDelta
	}
	d := s.delta()
	if d < 0 {
		d = -d
	}
	return s.Width * d
}

// sub returns a view of the w x h region of s starting at (cx, cy), with
// both strides resolved so the derived defaults cannot shift.
func (s *SourceImage) sub(cx, cy, w, h int) SourceImage {
	out := *s
	out.Delta = s.delta()
	out.LineDelta = s.lineDelta()
	out.Off += cx*out.Delta + cy*out.LineDelta
	out.Width = w
	out.Height = h
	return out
}

// RowFunc produces source rows on demand for the callback draw path. It
// fills row with w pixels of the declared channel layout for row y starting
// at column x. Within one draw it is called once per row in strictly
// increasing y order and must not re-enter the drawing pipeline.
type RowFunc func(x, y, w int, row []byte)

// FromImage copies an arbitrary image into a canonical 4-channel
// SourceImage. The alpha channel is carried over and blending enabled; clear
// Alpha on the result to draw it opaque.
func FromImage(img image.Image) SourceImage {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	return SourceImage{
		Pix:       dst.Pix,
		Width:     dst.Rect.Dx(),
		Height:    dst.Rect.Dy(),
		Channels:  4,
		Alpha:     true,
		Delta:     4,
		LineDelta: dst.Stride,
	}
}
