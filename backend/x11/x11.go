// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package x11 implements an xblit device over the X protocol.
//
// A Device wraps an existing drawable, probes the screen's pixel encoding
// from the connection setup, and moves converted rows with PutImage. When
// the server offers the RENDER extension the device reports native alpha
// blending and composites cached alpha surfaces with PictOpOver; without
// it, alpha work falls back to the client-side compositor.
package x11

import (
	"errors"
	"fmt"
	"image"
	"math/bits"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/gogpu/xblit"
)

// ErrNoTrueColorVisual is returned by New when the root visual is neither
// a true-color nor a supported indexed class.
var ErrNoTrueColorVisual = errors.New("x11: root visual not found in setup data")

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

// Device drives one X drawable. It is bound to the connection's root visual;
// draw on windows created with that visual.
//
// Like the context that feeds it, a Device is single-goroutine.
type Device struct {
	conn     *xgb.Conn
	setup    *xproto.SetupInfo
	screen   *xproto.ScreenInfo
	drawable xproto.Drawable
	gc       xproto.Gcontext
	depth    byte
	vis      xblit.VisualInfo
	clip     image.Rectangle
	maxReq   int // PutImage payload ceiling in bytes

	r, g, b channel

	pict *pictFormats // nil without RENDER

	// target is the lazily created RENDER picture for the drawable.
	target renderPicture
}

// New wraps an X drawable, typically a window created with the root visual.
// clip should be the drawable's pixel extent; SetClip narrows it later.
func New(conn *xgb.Conn, drawable xproto.Drawable, clip image.Rectangle) (*Device, error) {
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	vis, depth, cr, cg, cb, err := probeVisual(setup, screen)
	if err != nil {
		return nil, err
	}

	gcid, err := xproto.NewGcontextId(conn)
	if err != nil {
		return nil, fmt.Errorf("x11: allocating gc: %w", err)
	}
	xproto.CreateGC(conn, gcid, drawable,
		xproto.GcGraphicsExposures, []uint32{0})

	d := &Device{
		conn:     conn,
		setup:    setup,
		screen:   screen,
		drawable: drawable,
		gc:       gcid,
		depth:    depth,
		vis:      vis,
		clip:     clip,
		maxReq:   int(setup.MaximumRequestLength)*4 - 28,
		r:        cr,
		g:        cg,
		b:        cb,
	}
	d.pict = queryPictFormats(conn, screen)
	return d, nil
}

// probeVisual resolves the root visual's encoding from the setup data: the
// visual entry supplies the channel masks, the matching pixmap format the
// storage size and scanline pad, the setup header the byte order.
func probeVisual(setup *xproto.SetupInfo, screen *xproto.ScreenInfo) (xblit.VisualInfo, byte, channel, channel, channel, error) {
	var zero channel
	for _, di := range screen.AllowedDepths {
		for _, v := range di.Visuals {
			if v.VisualId != screen.RootVisual {
				continue
			}
			bpp := 0
			pad := 32
			for _, f := range setup.PixmapFormats {
				if f.Depth == di.Depth {
					bpp = int(f.BitsPerPixel)
					pad = int(f.ScanlinePad)
					break
				}
			}
			if bpp == 0 {
				bpp = int(di.Depth)
			}
			trueColor := v.Class == xproto.VisualClassTrueColor ||
				v.Class == xproto.VisualClassDirectColor
			vis := xblit.VisualInfo{
				BitsPerPixel: bpp,
				Depth:        int(di.Depth),
				ScanlinePad:  pad,
				MSBFirst:     setup.ImageByteOrder == xproto.ImageOrderMSBFirst,
				TrueColor:    trueColor,
				RedMask:      v.RedMask,
				GreenMask:    v.GreenMask,
				BlueMask:     v.BlueMask,
			}
			return vis, di.Depth, makeChannel(v.RedMask), makeChannel(v.GreenMask), makeChannel(v.BlueMask), nil
		}
	}
	return xblit.VisualInfo{}, 0, zero, zero, zero, ErrNoTrueColorVisual
}

// Visual implements xblit.Visualer.
func (d *Device) Visual() xblit.VisualInfo { return d.vis }

// SetClip restricts drawing to r, the toolkit's current damage region.
func (d *Device) SetClip(r image.Rectangle) { d.clip = r }

// ClipRect implements xblit.Device.
func (d *Device) ClipRect(r image.Rectangle) image.Rectangle {
	return r.Intersect(d.clip)
}

// Close frees the device's server resources. The connection is the
// caller's.
func (d *Device) Close() error {
	if d.target != 0 {
		freePicture(d.conn, d.target)
		d.target = 0
	}
	xproto.FreeGC(d.conn, d.gc)
	return nil
}

// Put implements xblit.Device. Opaque transfers become PutImage requests,
// split when a batch would overflow the server's request length.
// Premultiplied transfers blend against a readback of the destination,
// since a core PutImage cannot carry alpha onto an opaque drawable.
func (d *Device) Put(t xblit.Transfer) error {
	if t.Format.Premul {
		return d.blendPut(t)
	}

	return putImage(d.conn, d.drawable, d.gc, d.depth, d.maxReq, t)
}

// batchRows slices the data for rows [y, y+n). Direct transfers alias the
// caller's buffer, which may stop at the last pixel instead of extending a
// full padded row, so the final slice is clamped to the data's end.
func batchRows(data []byte, rowBytes, y, n int) []byte {
	end := (y + n) * rowBytes
	if end > len(data) {
		end = len(data)
	}
	return data[y*rowBytes : end]
}

// putImage issues PutImage requests for a batch of rows, splitting when the
// payload would overflow the server's maximum request length.
func putImage(conn *xgb.Conn, drawable xproto.Drawable, gc xproto.Gcontext, depth byte, maxReq int, t xblit.Transfer) error {
	w := t.Bounds.Dx()
	h := t.Bounds.Dy()
	rows := h
	if t.RowBytes > 0 && t.RowBytes*h > maxReq {
		rows = maxReq / t.RowBytes
		if rows < 1 {
			rows = 1
		}
	}
	for y := 0; y < h; y += rows {
		n := rows
		if y+n > h {
			n = h - y
		}
		data := batchRows(t.Data, t.RowBytes, y, n)
		err := xproto.PutImageChecked(conn, xproto.ImageFormatZPixmap,
			drawable, gc,
			uint16(w), uint16(n),
			int16(t.Bounds.Min.X), int16(t.Bounds.Min.Y+y),
			0, depth, data).Check()
		if err != nil {
			return fmt.Errorf("x11: put image: %w", err)
		}
	}
	return nil
}

// blendPut composites premultiplied ARGB rows over the drawable's current
// contents: fetch, blend, put back at the native depth.
func (d *Device) blendPut(t xblit.Transfer) error {
	w := t.Bounds.Dx()
	h := t.Bounds.Dy()
	img, stride, bpp, err := d.getImage(t.Bounds)
	if err != nil {
		return err
	}

	for y := 0; y < h; y++ {
		so := y * t.RowBytes
		for x := 0; x < w; x++ {
			px := t.Data[so : so+4]
			so += 4
			a := int(px[0])
			o := y*stride + x*bpp
			p := d.readPixel(img[o:], bpp)
			or := byte(int(px[1]) + int(d.r.to8(p))*(255-a)/255)
			og := byte(int(px[2]) + int(d.g.to8(p))*(255-a)/255)
			ob := byte(int(px[3]) + int(d.b.to8(p))*(255-a)/255)
			d.writePixel(img[o:], bpp, d.r.from8(or)|d.g.from8(og)|d.b.from8(ob))
		}
	}

	return d.Put(xblit.Transfer{
		Bounds:   t.Bounds,
		Data:     img,
		RowBytes: stride,
		Format: xblit.Format{
			BytesPerPixel: bpp,
			Depth:         int(d.depth),
			MSBFirst:      d.vis.MSBFirst,
		},
	})
}

func (d *Device) getImage(r image.Rectangle) (data []byte, stride, bpp int, err error) {
	reply, err := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap,
		d.drawable,
		int16(r.Min.X), int16(r.Min.Y),
		uint16(r.Dx()), uint16(r.Dy()),
		^uint32(0)).Reply()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("x11: get image: %w", err)
	}
	h := r.Dy()
	if h == 0 || len(reply.Data)%h != 0 {
		return nil, 0, 0, fmt.Errorf("x11: get image: unexpected %d bytes for %d rows", len(reply.Data), h)
	}
	return reply.Data, len(reply.Data) / h, d.vis.BitsPerPixel / 8, nil
}

func (d *Device) readPixel(s []byte, bpp int) uint32 {
	var p uint32
	if d.vis.MSBFirst {
		for i := 0; i < bpp; i++ {
			p = p<<8 | uint32(s[i])
		}
	} else {
		for i := bpp - 1; i >= 0; i-- {
			p = p<<8 | uint32(s[i])
		}
	}
	return p
}

func (d *Device) writePixel(s []byte, bpp int, p uint32) {
	if d.vis.MSBFirst {
		for i := bpp - 1; i >= 0; i-- {
			s[i] = byte(p)
			p >>= 8
		}
	} else {
		for i := 0; i < bpp; i++ {
			s[i] = byte(p)
			p >>= 8
		}
	}
}

// ReadRGB implements xblit.PixelReader with a GetImage round trip, widening
// each channel through the visual's masks.
func (d *Device) ReadRGB(r image.Rectangle) ([]byte, error) {
	img, stride, bpp, err := d.getImage(r)
	if err != nil {
		return nil, err
	}
	w := r.Dx()
	h := r.Dy()
	out := make([]byte, w*h*3)
	o := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := d.readPixel(img[y*stride+x*bpp:], bpp)
			out[o] = d.r.to8(p)
			out[o+1] = d.g.to8(p)
			out[o+2] = d.b.to8(p)
			o += 3
		}
	}
	return out, nil
}

// FillRect implements xblit.RectFiller with a server-side solid fill.
func (d *Device) FillRect(r image.Rectangle, cr, cg, cb byte) error {
	r = r.Intersect(d.clip)
	if r.Empty() {
		return nil
	}
	pixel := d.r.from8(cr) | d.g.from8(cg) | d.b.from8(cb)
	xproto.ChangeGC(d.conn, d.gc, xproto.GcForeground, []uint32{pixel})
	return xproto.PolyFillRectangleChecked(d.conn, d.drawable, d.gc,
		[]xproto.Rectangle{{
			X:      int16(r.Min.X),
			Y:      int16(r.Min.Y),
			Width:  uint16(r.Dx()),
			Height: uint16(r.Dy()),
		}}).Check()
}
