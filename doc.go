// Package xblit converts in-memory RGB, RGBA and greyscale images into
// whatever pixel encoding a connected X11-style display demands, and drives
// the clipped, buffered transfer of the result.
//
// # Overview
//
// A display's framebuffer format is unknown until runtime: bit depth,
// channel order, channel masks, byte order and scanline padding all vary.
// xblit bridges a single canonical source representation (packed 8-bit
// channels, configurable pixel and row strides) to the native encoding: a
// Context probes the visual once, selects the matching row converter, and
// its draw methods clip, convert in bounded batches and hand the batches to
// a Device for transfer. Displays without native alpha get a manual
// source-over compositor; reusable images can be baked once into an
// offscreen surface and replayed.
//
// # Quick Start
//
//	conn, err := xgb.NewConn()
//	if err != nil { ... }
//	dev, err := x11.New(conn, xproto.Drawable(win), image.Rect(0, 0, w, h))
//	if err != nil { ... }           // or memory.New for headless use
//	ctx, err := xblit.NewContextFor(dev)
//	if err != nil { ... }
//
//	src := xblit.FromImage(img)
//	if err := ctx.Draw(dev, &src, image.Pt(10, 10)); err != nil { ... }
//
// # Collaborators
//
// Window-system connection setup, colormap management, clip-region
// bookkeeping and offscreen-surface lifecycle are consumed as capabilities
// (see Device and its optional refinements), not implemented here. The
// backend packages provide them: backend/x11 over the X protocol and
// backend/memory as a pure software target.
//
// # Concurrency
//
// Everything is single-threaded and synchronous. A Context owns mutable
// converter state (dither accumulators, scratch buffers) and must not be
// shared between goroutines or re-entered from a RowFunc.
package xblit
