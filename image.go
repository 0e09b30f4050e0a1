package xblit

import "image"

type cacheState uint8

const (
	cacheNone cacheState = iota
	cacheReady
	cacheFailed
)

// Image is a reusable image object whose converted, display-ready rendering
// is baked into an offscreen surface on first draw and replayed afterwards.
// Conversion cost is paid once per Image, not once per draw.
//
// The baked surface (and optional mask) are owned by the Image and released
// by Close or Invalidate.
type Image struct {
	src   SourceImage
	surf  Offscreen
	mask  Offscreen
	state cacheState
}

// NewImage wraps a source image for cached drawing. The SourceImage fields
// are captured by value; the pixel data is shared, not copied, and must
// stay valid until the Image is closed.
func NewImage(src SourceImage) *Image {
	return &Image{src: src}
}

// SetMask attaches a transparency mask surface, owned by the Image from now
// on. Devices implementing MaskCopier apply it when replaying the cache.
func (im *Image) SetMask(m Offscreen) {
	if im.mask != nil {
		_ = im.mask.Close()
	}
	im.mask = m
}

// Invalidate drops the baked surface, forcing a fresh bake on the next
// draw. Call it after mutating the source pixels.
func (im *Image) Invalidate() {
	if im.surf != nil {
		_ = im.surf.Close()
		im.surf = nil
	}
	im.state = cacheNone
}

// Close releases the baked surface and mask.
func (im *Image) Close() error {
	im.Invalidate()
	if im.mask != nil {
		err := im.mask.Close()
		im.mask = nil
		return err
	}
	return nil
}

// Draw renders the portion of the image selected by offset into dst,
// clipped against the device region and the image extent. offset is the
// image-space position appearing at dst.Min.
//
// The first draw bakes: 1- and 3-channel images into an opaque surface,
// 4-channel images into a 32-bit alpha surface when the device composites
// alpha natively. 4- and 2-channel images on devices without native alpha
// are composited manually on every draw. A failed surface allocation
// degrades permanently to the per-draw path rather than failing the draw.
func (im *Image) Draw(c *Context, dev Device, dst image.Rectangle, offset image.Point) error {
	if len(im.src.Pix) == 0 || im.src.Channels == 0 {
		return nil
	}

	vis := dev.ClipRect(dst).Intersect(dst)
	if vis.Empty() {
		return nil
	}

	// Clip down to the image extent: the image's (0,0) lands at dst.Min
	// minus offset.
	origin := dst.Min.Sub(offset)
	extent := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(im.src.Width, im.src.Height))}
	vis = vis.Intersect(extent)
	if vis.Empty() {
		return nil
	}
	cx := vis.Min.X - origin.X
	cy := vis.Min.Y - origin.Y

	od, hasOffscreen := dev.(OffscreenDevice)

	if im.state == cacheNone && hasOffscreen {
		switch im.src.Channels {
		case 1, 3:
			im.bake(c, od, false)
		case 4:
			if od.CanBlendAlpha() {
				im.bake(c, od, true)
			}
		}
	}

	if im.state == cacheReady && hasOffscreen {
		if im.mask != nil {
			if mc, ok := dev.(MaskCopier); ok {
				return mc.CopyAreaMasked(im.surf, im.mask, image.Pt(cx, cy), vis)
			}
		}
		return od.CopyArea(im.surf, image.Pt(cx, cy), vis)
	}

	// Per-draw fallback.
	if im.src.Alpha && (im.src.Channels == 2 || im.src.Channels == 4) {
		return c.compositeOver(dev, &im.src, vis, cx, cy)
	}
	sub := im.src.sub(cx, cy, vis.Dx(), vis.Dy())
	return c.Draw(dev, &sub, vis.Min)
}

// bake converts the full image once into a fresh offscreen surface at its
// natural size; clipping and positioning stay a blit-time concern.
func (im *Image) bake(c *Context, od OffscreenDevice, alpha bool) {
	surf, err := od.NewOffscreen(im.src.Width, im.src.Height, alpha)
	if err != nil {
		Logger().Warn("xblit: offscreen cache allocation failed; drawing uncached",
			"width", im.src.Width, "height", im.src.Height, "error", err)
		im.state = cacheFailed
		return
	}

	src := im.src
	src.Alpha = alpha
	if err := c.Draw(surf, &src, image.Point{}); err != nil {
		Logger().Warn("xblit: baking image to offscreen surface failed", "error", err)
		_ = surf.Close()
		im.state = cacheFailed
		return
	}

	im.surf = surf
	im.state = cacheReady
	Logger().Debug("xblit: image baked to offscreen surface",
		"width", im.src.Width, "height", im.src.Height, "alpha", alpha)
}
