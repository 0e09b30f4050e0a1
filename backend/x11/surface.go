// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package x11

import (
	"fmt"
	"image"

	"github.com/jezek/xgb/xproto"

	"github.com/gogpu/xblit"
)

// Surface is a server-side pixmap serving as an offscreen cache. It accepts
// the same transfers as the on-screen device, so baking reuses the ordinary
// draw path.
type Surface struct {
	dev   *Device
	pix   xproto.Pixmap
	gc    xproto.Gcontext
	w, h  int
	depth byte
	alpha bool

	picture renderPicture
}

// CanBlendAlpha implements xblit.OffscreenDevice: alpha surfaces are only
// useful when RENDER can composite them back.
func (d *Device) CanBlendAlpha() bool {
	return d.pict != nil && d.pict.argb32 != 0
}

// NewOffscreen implements xblit.OffscreenDevice. Opaque surfaces take the
// drawable's depth; alpha surfaces are 32-bit ARGB pixmaps with a RENDER
// picture attached.
func (d *Device) NewOffscreen(w, h int, alpha bool) (xblit.Offscreen, error) {
	depth := d.depth
	if alpha {
		if !d.CanBlendAlpha() {
			return nil, fmt.Errorf("x11: alpha surface requires the RENDER extension")
		}
		depth = 32
	}

	pid, err := xproto.NewPixmapId(d.conn)
	if err != nil {
		return nil, fmt.Errorf("x11: allocating pixmap id: %w", err)
	}
	err = xproto.CreatePixmapChecked(d.conn, depth, pid, d.drawable,
		uint16(w), uint16(h)).Check()
	if err != nil {
		return nil, fmt.Errorf("x11: creating %dx%d depth-%d pixmap: %w", w, h, depth, err)
	}

	gcid, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		xproto.FreePixmap(d.conn, pid)
		return nil, fmt.Errorf("x11: allocating gc: %w", err)
	}
	xproto.CreateGC(d.conn, gcid, xproto.Drawable(pid),
		xproto.GcGraphicsExposures, []uint32{0})

	s := &Surface{
		dev:   d,
		pix:   pid,
		gc:    gcid,
		w:     w,
		h:     h,
		depth: depth,
		alpha: alpha,
	}
	if alpha {
		s.picture = createPicture(d.conn, xproto.Drawable(pid), d.pict.argb32)
	}
	return s, nil
}

// ClipRect implements xblit.Device; a surface is always fully visible.
func (s *Surface) ClipRect(r image.Rectangle) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, s.w, s.h))
}

// Put implements xblit.Device, storing rows into the pixmap.
func (s *Surface) Put(t xblit.Transfer) error {
	return putImage(s.dev.conn, xproto.Drawable(s.pix), s.gc, s.depth, s.dev.maxReq, t)
}

// Close frees the pixmap and its helpers.
func (s *Surface) Close() error {
	if s.picture != 0 {
		freePicture(s.dev.conn, s.picture)
		s.picture = 0
	}
	xproto.FreeGC(s.dev.conn, s.gc)
	xproto.FreePixmap(s.dev.conn, s.pix)
	return nil
}

// CopyArea implements xblit.OffscreenDevice. Opaque surfaces replay with a
// core CopyArea; alpha surfaces composite with PictOpOver.
func (d *Device) CopyArea(src xblit.Offscreen, srcPt image.Point, dst image.Rectangle) error {
	s, ok := src.(*Surface)
	if !ok {
		return fmt.Errorf("x11: foreign offscreen %T", src)
	}
	r := dst.Intersect(d.clip)
	if r.Empty() {
		return nil
	}
	sx := srcPt.X + (r.Min.X - dst.Min.X)
	sy := srcPt.Y + (r.Min.Y - dst.Min.Y)

	if s.alpha {
		if err := d.ensureTarget(); err != nil {
			return err
		}
		return compositeOver(d.conn, s.picture, d.target, sx, sy, r)
	}

	return xproto.CopyAreaChecked(d.conn,
		xproto.Drawable(s.pix), d.drawable, d.gc,
		int16(sx), int16(sy),
		int16(r.Min.X), int16(r.Min.Y),
		uint16(r.Dx()), uint16(r.Dy())).Check()
}

// CopyAreaMasked implements xblit.MaskCopier by routing a core CopyArea
// through the mask pixmap as the GC clip mask.
func (d *Device) CopyAreaMasked(src, mask xblit.Offscreen, srcPt image.Point, dst image.Rectangle) error {
	s, ok := src.(*Surface)
	if !ok {
		return fmt.Errorf("x11: foreign offscreen %T", src)
	}
	m, ok := mask.(*Surface)
	if !ok {
		return fmt.Errorf("x11: foreign mask %T", mask)
	}
	r := dst.Intersect(d.clip)
	if r.Empty() {
		return nil
	}
	sx := srcPt.X + (r.Min.X - dst.Min.X)
	sy := srcPt.Y + (r.Min.Y - dst.Min.Y)

	// Mask coordinates line up with the source: the clip origin is the
	// destination position of source (0,0).
	xproto.ChangeGC(d.conn, d.gc,
		xproto.GcClipMask|xproto.GcClipOriginX|xproto.GcClipOriginY,
		[]uint32{uint32(m.pix), uint32(uint16(r.Min.X - sx)), uint32(uint16(r.Min.Y - sy))})
	err := xproto.CopyAreaChecked(d.conn,
		xproto.Drawable(s.pix), d.drawable, d.gc,
		int16(sx), int16(sy),
		int16(r.Min.X), int16(r.Min.Y),
		uint16(r.Dx()), uint16(r.Dy())).Check()
	xproto.ChangeGC(d.conn, d.gc, xproto.GcClipMask,
		[]uint32{uint32(xproto.PixmapNone)})
	return err
}
