// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package memory implements a software framebuffer device for xblit.
//
// A Device keeps its pixels as raw native-format bytes, laid out exactly the
// way a display server would store them: the probed bits-per-pixel, byte
// order and scanline padding of its VisualInfo. That makes it both a
// headless render target and a faithful stand-in for a real display in
// tests, since every transfer crosses the same encoding boundary.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math/bits"

	"github.com/gogpu/xblit"
)

var (
	// ErrBadVisual is returned by New for pixel sizes the framebuffer
	// cannot store.
	ErrBadVisual = errors.New("memory: unsupported bits per pixel")

	// ErrNoColormap is returned when a palette device must decode or
	// encode pixels but was built without a colormap.
	ErrNoColormap = errors.New("memory: palette visual without a colormap")
)

// Colormap resolves between RGB triples and native pixel values on
// palette-indexed visuals. *colorcube.Cube satisfies it.
type Colormap interface {
	Pixel(r, g, b byte) (pixel uint32, pr, pg, pb byte)
	Lookup(pixel uint32) (r, g, b byte, ok bool)
}

type channel struct {
	shift uint
	bits  uint
}

func makeChannel(mask uint32) channel {
	return channel{
		shift: uint(bits.TrailingZeros32(mask)),
		bits:  uint(bits.OnesCount32(mask)),
	}
}

// to8 widens a channel value to 8 bits. Narrow channels replicate their top
// bits into the low end so full intensity maps to 255; channels wider than
// 8 bits keep their top byte.
func (c channel) to8(pixel uint32) byte {
	if c.bits >= 8 {
		return byte(pixel >> (c.shift + c.bits - 8))
	}
	v := byte(pixel >> c.shift << (8 - c.bits))
	return v | v>>c.bits
}

func (c channel) from8(v byte) uint32 {
	if c.bits >= 8 {
		return uint32(v) << (c.bits - 8) << c.shift
	}
	return uint32(v>>(8-c.bits)) << c.shift
}

// Device is an in-memory framebuffer. It implements every optional xblit
// capability: visual probing, pixel readback, offscreen surfaces with
// premultiplied alpha, masked copies and solid fills.
//
// Like the rendering context that drives it, a Device is single-goroutine.
type Device struct {
	vis    xblit.VisualInfo
	buf    []byte
	w, h   int
	stride int
	bpp    int
	clip   image.Rectangle
	cmap   Colormap

	r, g, b channel

	// alpha marks a surface storing premultiplied big-endian ARGB rather
	// than the parent device's native layout.
	alpha bool
}

// Option configures a Device.
type Option func(*Device)

// WithColormap attaches the colormap a palette device uses to decode and
// encode its index pixels.
func WithColormap(m Colormap) Option {
	return func(d *Device) { d.cmap = m }
}

// New creates a w x h framebuffer storing pixels in the visual's native
// encoding, cleared to zero.
func New(w, h int, vis xblit.VisualInfo, opts ...Option) (*Device, error) {
	if vis.BitsPerPixel&7 != 0 || vis.BitsPerPixel < 8 || vis.BitsPerPixel > 32 {
		return nil, fmt.Errorf("%w: %d", ErrBadVisual, vis.BitsPerPixel)
	}
	bpp := vis.BitsPerPixel / 8
	pad := vis.ScanlinePad / 8
	if pad < 1 {
		pad = 1
	}
	stride := (w*bpp + pad - 1) &^ (pad - 1)

	d := &Device{
		vis:    vis,
		buf:    make([]byte, stride*h),
		w:      w,
		h:      h,
		stride: stride,
		bpp:    bpp,
		clip:   image.Rect(0, 0, w, h),
		r:      makeChannel(vis.RedMask),
		g:      makeChannel(vis.GreenMask),
		b:      makeChannel(vis.BlueMask),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Visual returns the framebuffer's native pixel encoding.
func (d *Device) Visual() xblit.VisualInfo { return d.vis }

// Bounds returns the framebuffer rectangle.
func (d *Device) Bounds() image.Rectangle { return image.Rect(0, 0, d.w, d.h) }

// Raw exposes the backing bytes and the row stride. The bytes are live;
// they change with every draw.
func (d *Device) Raw() (pix []byte, stride int) { return d.buf, d.stride }

// SetClip restricts drawing to r. The empty rectangle resets to the full
// framebuffer.
func (d *Device) SetClip(r image.Rectangle) {
	if r.Empty() {
		d.clip = d.Bounds()
		return
	}
	d.clip = r.Intersect(d.Bounds())
}

// ClipRect implements xblit.Device.
func (d *Device) ClipRect(r image.Rectangle) image.Rectangle {
	return r.Intersect(d.clip)
}

// Close implements xblit.Offscreen. Plain devices hold no external
// resources; the method exists so surfaces made by NewOffscreen satisfy the
// interface.
func (d *Device) Close() error {
	d.buf = nil
	return nil
}

// Put implements xblit.Device, storing or blending one batch of rows.
func (d *Device) Put(t xblit.Transfer) error {
	r := t.Bounds.Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	sx := r.Min.X - t.Bounds.Min.X
	sy := r.Min.Y - t.Bounds.Min.Y

	if t.Format.Premul && !d.alpha {
		return d.blendRows(t, r, sx, sy)
	}

	bpp := t.Format.BytesPerPixel
	n := r.Dx() * bpp
	for y := 0; y < r.Dy(); y++ {
		src := t.Data[(sy+y)*t.RowBytes+sx*bpp:]
		dst := d.buf[(r.Min.Y+y)*d.stride+r.Min.X*d.bpp:]
		copy(dst[:n], src)
	}
	return nil
}

// blendRows composites a premultiplied ARGB transfer over the native
// framebuffer contents: out = src + dst*(255-a)/255 per channel.
func (d *Device) blendRows(t xblit.Transfer, r image.Rectangle, sx, sy int) error {
	for y := 0; y < r.Dy(); y++ {
		so := (sy+y)*t.RowBytes + sx*4
		for x := 0; x < r.Dx(); x++ {
			px := t.Data[so : so+4]
			so += 4
			a := int(px[0])
			dr, dg, db, err := d.decode(d.pixelAt(r.Min.X+x, r.Min.Y+y))
			if err != nil {
				return err
			}
			or := byte(int(px[1]) + int(dr)*(255-a)/255)
			og := byte(int(px[2]) + int(dg)*(255-a)/255)
			ob := byte(int(px[3]) + int(db)*(255-a)/255)
			p, err := d.encode(or, og, ob)
			if err != nil {
				return err
			}
			d.setPixel(r.Min.X+x, r.Min.Y+y, p)
		}
	}
	return nil
}

// ReadRGB implements xblit.PixelReader, decoding r into packed 8-bit RGB.
func (d *Device) ReadRGB(r image.Rectangle) ([]byte, error) {
	if !r.In(d.Bounds()) {
		return nil, fmt.Errorf("memory: readback of %v outside %v", r, d.Bounds())
	}
	out := make([]byte, r.Dx()*r.Dy()*3)
	o := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, err := d.decode(d.pixelAt(x, y))
			if err != nil {
				return nil, err
			}
			out[o], out[o+1], out[o+2] = cr, cg, cb
			o += 3
		}
	}
	return out, nil
}

// CanBlendAlpha implements xblit.OffscreenDevice. Palette framebuffers
// cannot re-encode blended colors without quantizing, so they report false
// and leave alpha work to the manual compositor.
func (d *Device) CanBlendAlpha() bool { return d.vis.TrueColor }

// NewOffscreen implements xblit.OffscreenDevice. Opaque surfaces share the
// parent's visual; alpha surfaces store premultiplied big-endian ARGB.
func (d *Device) NewOffscreen(w, h int, alpha bool) (xblit.Offscreen, error) {
	if !alpha {
		s, err := New(w, h, d.vis)
		if err != nil {
			return nil, err
		}
		s.cmap = d.cmap
		return s, nil
	}
	s, err := New(w, h, xblit.VisualInfo{
		BitsPerPixel: 32, Depth: 32, ScanlinePad: 32,
		MSBFirst: true, TrueColor: true,
		RedMask: 0x00FF0000, GreenMask: 0x0000FF00, BlueMask: 0x000000FF,
	})
	if err != nil {
		return nil, err
	}
	s.alpha = true
	return s, nil
}

// CopyArea implements xblit.OffscreenDevice. Opaque surfaces copy their
// native bytes; alpha surfaces composite over the destination.
func (d *Device) CopyArea(src xblit.Offscreen, srcPt image.Point, dst image.Rectangle) error {
	s, ok := src.(*Device)
	if !ok {
		return fmt.Errorf("memory: foreign offscreen %T", src)
	}
	r := dst.Intersect(d.clip).Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	ox := srcPt.X + (r.Min.X - dst.Min.X)
	oy := srcPt.Y + (r.Min.Y - dst.Min.Y)

	if s.alpha {
		return d.blendRows(xblit.Transfer{
			Bounds:   r,
			Data:     s.buf[oy*s.stride+ox*4:],
			RowBytes: s.stride,
			Format:   xblit.Format{BytesPerPixel: 4, Depth: 32, MSBFirst: true, Premul: true},
		}, r, 0, 0)
	}

	n := r.Dx() * d.bpp
	for y := 0; y < r.Dy(); y++ {
		from := s.buf[(oy+y)*s.stride+ox*s.bpp:]
		to := d.buf[(r.Min.Y+y)*d.stride+r.Min.X*d.bpp:]
		copy(to[:n], from)
	}
	return nil
}

// CopyAreaMasked implements xblit.MaskCopier. Pixels where the mask surface
// reads zero are left untouched.
func (d *Device) CopyAreaMasked(src, mask xblit.Offscreen, srcPt image.Point, dst image.Rectangle) error {
	s, ok := src.(*Device)
	if !ok {
		return fmt.Errorf("memory: foreign offscreen %T", src)
	}
	m, ok := mask.(*Device)
	if !ok {
		return fmt.Errorf("memory: foreign mask %T", mask)
	}
	r := dst.Intersect(d.clip).Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	ox := srcPt.X + (r.Min.X - dst.Min.X)
	oy := srcPt.Y + (r.Min.Y - dst.Min.Y)

	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			if m.pixelAt(ox+x, oy+y) == 0 {
				continue
			}
			d.setPixel(r.Min.X+x, r.Min.Y+y, s.pixelAt(ox+x, oy+y))
		}
	}
	return nil
}

// FillRect implements xblit.RectFiller.
func (d *Device) FillRect(r image.Rectangle, cr, cg, cb byte) error {
	r = r.Intersect(d.clip).Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	p, err := d.encode(cr, cg, cb)
	if err != nil {
		return err
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			d.setPixel(x, y, p)
		}
	}
	return nil
}

func (d *Device) pixelAt(x, y int) uint32 {
	o := y*d.stride + x*d.bpp
	s := d.buf[o:]
	switch d.bpp {
	case 1:
		return uint32(s[0])
	case 2:
		if d.vis.MSBFirst {
			return uint32(binary.BigEndian.Uint16(s))
		}
		return uint32(binary.LittleEndian.Uint16(s))
	case 3:
		if d.vis.MSBFirst {
			return uint32(s[0])<<16 | uint32(s[1])<<8 | uint32(s[2])
		}
		return uint32(s[2])<<16 | uint32(s[1])<<8 | uint32(s[0])
	default:
		if d.vis.MSBFirst {
			return binary.BigEndian.Uint32(s)
		}
		return binary.LittleEndian.Uint32(s)
	}
}

func (d *Device) setPixel(x, y int, p uint32) {
	o := y*d.stride + x*d.bpp
	s := d.buf[o:]
	switch d.bpp {
	case 1:
		s[0] = byte(p)
	case 2:
		if d.vis.MSBFirst {
			binary.BigEndian.PutUint16(s, uint16(p))
		} else {
			binary.LittleEndian.PutUint16(s, uint16(p))
		}
	case 3:
		if d.vis.MSBFirst {
			s[0], s[1], s[2] = byte(p>>16), byte(p>>8), byte(p)
		} else {
			s[0], s[1], s[2] = byte(p), byte(p>>8), byte(p>>16)
		}
	default:
		if d.vis.MSBFirst {
			binary.BigEndian.PutUint32(s, p)
		} else {
			binary.LittleEndian.PutUint32(s, p)
		}
	}
}

func (d *Device) decode(p uint32) (r, g, b byte, err error) {
	if d.alpha {
		// Premultiplied ARGB surface; alpha is dropped on readback.
		return byte(p >> 16), byte(p >> 8), byte(p), nil
	}
	if d.vis.TrueColor {
		return d.r.to8(p), d.g.to8(p), d.b.to8(p), nil
	}
	if d.cmap == nil {
		return 0, 0, 0, ErrNoColormap
	}
	r, g, b, ok := d.cmap.Lookup(p)
	if !ok {
		return 0, 0, 0, fmt.Errorf("memory: pixel %#x not in colormap", p)
	}
	return r, g, b, nil
}

func (d *Device) encode(r, g, b byte) (uint32, error) {
	if d.vis.TrueColor {
		return d.r.from8(r) | d.g.from8(g) | d.b.from8(b), nil
	}
	if d.cmap == nil {
		return 0, ErrNoColormap
	}
	p, _, _, _ := d.cmap.Pixel(r, g, b)
	return p, nil
}
