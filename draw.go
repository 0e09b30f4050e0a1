package xblit

import (
	"image"

	"github.com/gogpu/xblit/internal/pixconv"
)

// Draw renders a source image with its top-left corner at pos, clipped
// against the device's visible region. Channel count selects the converter
// variant; when img.Alpha is set on a 2- or 4-channel image the pixels are
// premultiplied and blended instead of drawn opaque.
func (c *Context) Draw(dev Device, img *SourceImage, pos image.Point) error {
	mono := img.Channels < 3
	alpha := img.Alpha && (img.Channels == 2 || img.Channels == 4)
	return c.blit(dev, img, nil, img.Width, img.Height, img.Channels, pos, mono, alpha)
}

// DrawMono renders any source image through the greyscale converters,
// reading only the first channel of each pixel.
func (c *Context) DrawMono(dev Device, img *SourceImage, pos image.Point) error {
	return c.blit(dev, img, nil, img.Width, img.Height, img.Channels, pos, true, false)
}

// DrawFunc renders w x h pixels produced row by row through fn, which is
// invoked in strictly increasing y order, once per visible row.
func (c *Context) DrawFunc(dev Device, w, h, channels int, alpha bool, fn RowFunc, pos image.Point) error {
	mono := channels < 3
	alpha = alpha && (channels == 2 || channels == 4)
	return c.blit(dev, nil, fn, w, h, channels, pos, mono, alpha)
}

// DrawMonoFunc is DrawFunc through the greyscale converters.
func (c *Context) DrawMonoFunc(dev Device, w, h int, fn RowFunc, pos image.Point) error {
	return c.blit(dev, nil, fn, w, h, 1, pos, true, false)
}

// blit is the orchestrator: it clips, picks the converter, and moves the
// image in row batches bounded by the scratch ceiling. Exactly one of img
// and fn is non-nil; passing neither is a contract violation.
func (c *Context) blit(dev Device, img *SourceImage, fn RowFunc, w, h, channels int, pos image.Point, mono, alpha bool) error {
	if w <= 0 || h <= 0 {
		return nil
	}

	delta := channels
	lineDelta := 0
	if img != nil {
		delta = img.delta()
		lineDelta = img.lineDelta()
	}

	req := image.Rectangle{Min: pos, Max: pos.Add(image.Pt(w, h))}
	vis := dev.ClipRect(req).Intersect(req)
	if vis.Empty() {
		return nil
	}
	dx := vis.Min.X - pos.X
	dy := vis.Min.Y - pos.Y
	clipW := vis.Dx()
	clipH := vis.Dy()

	l := &c.conv.Layout
	format := Format{BytesPerPixel: l.BytesPerPixel, Depth: l.Depth, MSBFirst: l.MSBFirst}
	bpp := l.BytesPerPixel
	align := l.Align

	conv := c.conv.Color
	if mono {
		conv = c.conv.Mono
	}
	if alpha {
		// Destination format becomes premultiplied big-endian ARGB32
		// regardless of the native layout; the device routes it to an
		// alpha-capable drawing context.
		conv = pixconv.ARGBPremul
		if channels == 2 {
			conv = pixconv.GreyPremul
		}
		format = Format{BytesPerPixel: 4, Depth: 32, MSBFirst: true, Premul: true}
		bpp = 4
	}

	// Direct transfer when the caller's buffer is already in destination
	// layout: 24-bit RGB, packed 3-byte pixels, row stride satisfying the
	// padding invariant. Negative row strides cannot alias a slice
	// backwards, so they take the copying path.
	if img != nil && !mono && !alpha && l.Kind == pixconv.KindRGB24 &&
		delta == 3 && lineDelta > 0 && lineDelta%align == 0 {
		start := img.Off + dx*delta + dy*lineDelta
		end := start + (clipH-1)*lineDelta + clipW*3
		if start >= 0 && end <= len(img.Pix) {
			return dev.Put(Transfer{
				Bounds:   vis,
				Data:     img.Pix[start:end],
				RowBytes: lineDelta,
				Format:   format,
			})
		}
	}

	rowBytes := (clipW*bpp + align - 1) &^ (align - 1)
	blocking := clipH
	size := rowBytes * clipH
	if size > c.maxScratch {
		blocking = c.maxScratch / rowBytes
		if blocking < 1 {
			blocking = 1
		}
		size = rowBytes * blocking
	}
	if len(c.scratch) < size {
		c.scratch = make([]byte, size)
	}

	if img == nil {
		// Line buffer for callback-produced rows, sized to the declared
		// width so fn may fill past the clipped span.
		n := w * delta
		if len(c.line) < n {
			c.line = make([]byte, n)
		}
	}

	srcOff := 0
	if img != nil {
		srcOff = img.Off + dx*delta + dy*lineDelta
	}

	for j := 0; j < clipH; {
		k := 0
		for ; j < clipH && k < blocking; k++ {
			to := c.scratch[k*rowBytes:]
			if img != nil {
				conv(to, img.Pix, srcOff, clipW, delta)
				srcOff += lineDelta
			} else {
				fn(dx, dy+j, clipW, c.line)
				conv(to, c.line, 0, clipW, delta)
			}
			j++
		}
		t := Transfer{
			Bounds:   image.Rect(vis.Min.X, vis.Min.Y+j-k, vis.Max.X, vis.Min.Y+j),
			Data:     c.scratch[:k*rowBytes],
			RowBytes: rowBytes,
			Format:   format,
		}
		if err := dev.Put(t); err != nil {
			return err
		}
	}
	return nil
}

// FillRect draws a solid rectangle. Deep visuals take the device's own fill
// when it offers one; palette and 16-bit visuals go through the dithered
// conversion path so large flat areas match dithered image content.
func (c *Context) FillRect(dev Device, r image.Rectangle, cr, cg, cb byte) error {
	if c.conv.Layout.Depth > 16 {
		if f, ok := dev.(RectFiller); ok {
			return f.FillRect(r, cr, cg, cb)
		}
	}
	return c.DrawFunc(dev, r.Dx(), r.Dy(), 3, false, func(x, y, w int, row []byte) {
		for i := 0; i < w*3; i += 3 {
			row[i], row[i+1], row[i+2] = cr, cg, cb
		}
	}, r.Min)
}
