// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package x11

import (
	"fmt"
	"image"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/render"
	"github.com/jezek/xgb/xproto"

	"github.com/gogpu/xblit"
)

type renderPicture = render.Picture

// pictFormats holds the picture formats the compositing paths need: the
// standard ARGB32 format for alpha surfaces and the format matching the
// root visual for the on-screen target.
type pictFormats struct {
	argb32 render.Pictformat
	root   render.Pictformat
}

// queryPictFormats probes the RENDER extension. A nil result means the
// server lacks it and every alpha path degrades to client-side work.
func queryPictFormats(conn *xgb.Conn, screen *xproto.ScreenInfo) *pictFormats {
	if err := render.Init(conn); err != nil {
		xblit.Logger().Debug("x11: RENDER unavailable", "error", err)
		return nil
	}
	reply, err := render.QueryPictFormats(conn).Reply()
	if err != nil {
		xblit.Logger().Debug("x11: RENDER format query failed", "error", err)
		return nil
	}

	var pf pictFormats
	for _, f := range reply.Formats {
		if f.Type == render.PictTypeDirect && f.Depth == 32 &&
			f.Direct.AlphaMask == 0xFF && f.Direct.AlphaShift == 24 &&
			f.Direct.RedShift == 16 && f.Direct.GreenShift == 8 && f.Direct.BlueShift == 0 {
			pf.argb32 = f.Id
			break
		}
	}
	for _, s := range reply.Screens {
		for _, d := range s.Depths {
			for _, v := range d.Visuals {
				if v.Visual == screen.RootVisual {
					pf.root = v.Format
				}
			}
		}
	}
	if pf.argb32 == 0 || pf.root == 0 {
		return nil
	}
	return &pf
}

func createPicture(conn *xgb.Conn, d xproto.Drawable, format render.Pictformat) render.Picture {
	pid, err := render.NewPictureId(conn)
	if err != nil {
		return 0
	}
	render.CreatePicture(conn, pid, d, format, 0, nil)
	return pid
}

func freePicture(conn *xgb.Conn, p render.Picture) {
	render.FreePicture(conn, p)
}

// ensureTarget lazily attaches a RENDER picture to the drawable, the
// destination of every alpha composite.
func (d *Device) ensureTarget() error {
	if d.target != 0 {
		return nil
	}
	if d.pict == nil {
		return fmt.Errorf("x11: compositing without the RENDER extension")
	}
	d.target = createPicture(d.conn, d.drawable, d.pict.root)
	if d.target == 0 {
		return fmt.Errorf("x11: creating target picture failed")
	}
	return nil
}

// compositeOver blends a premultiplied source picture over dst.
func compositeOver(conn *xgb.Conn, src, dst render.Picture, sx, sy int, r image.Rectangle) error {
	return render.CompositeChecked(conn, render.PictOpOver,
		src, render.Picture(0), dst,
		int16(sx), int16(sy),
		0, 0,
		int16(r.Min.X), int16(r.Min.Y),
		uint16(r.Dx()), uint16(r.Dy())).Check()
}
