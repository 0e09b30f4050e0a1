package xblit

import (
	"fmt"
	"image"
)

// compositeOver blends an alpha-carrying source over the device's current
// contents by hand, for destinations without native alpha compositing. It
// reads back the destination rectangle, blends
// out = (src*a + dst*(255-a)) / 255 per channel, and rewrites the result
// through the opaque draw path. The destination keeps no alpha, so none is
// written.
//
// (cx, cy) is the offset into the source image of the pixel appearing at
// dst.Min. Supported sources are 2-channel grey+alpha and 4-channel RGBA.
func (c *Context) compositeOver(dev Device, img *SourceImage, dst image.Rectangle, cx, cy int) error {
	rd, ok := dev.(PixelReader)
	if !ok {
		return ErrNoReadback
	}

	w := dst.Dx()
	h := dst.Dy()
	buf, err := rd.ReadRGB(dst)
	if err != nil {
		return fmt.Errorf("xblit: compositing readback: %w", err)
	}

	delta := img.delta()
	lineDelta := img.lineDelta()
	grey := img.Channels == 2

	for y := 0; y < h; y++ {
		so := img.Off + (cy+y)*lineDelta + cx*delta
		do := y * w * 3
		for x := 0; x < w; x, so, do = x+1, so+delta, do+3 {
			var sr, sg, sb, sa int
			if grey {
				sr = int(img.Pix[so])
				sg, sb = sr, sr
				sa = int(img.Pix[so+1])
			} else {
				sr = int(img.Pix[so])
				sg = int(img.Pix[so+1])
				sb = int(img.Pix[so+2])
				sa = int(img.Pix[so+3])
			}
			da := 255 - sa
			buf[do] = byte((sr*sa + int(buf[do])*da) / 255)
			buf[do+1] = byte((sg*sa + int(buf[do+1])*da) / 255)
			buf[do+2] = byte((sb*sa + int(buf[do+2])*da) / 255)
		}
	}

	out := SourceImage{Pix: buf, Width: w, Height: h, Channels: 3}
	return c.Draw(dev, &out, dst.Min)
}
