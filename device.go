package xblit

import (
	"errors"
	"image"
)

// Errors reported by the drawing pipeline for missing device capabilities.
var (
	// ErrNoVisual is returned by NewContextFor when the device cannot
	// report its native visual.
	ErrNoVisual = errors.New("xblit: device does not report a visual")

	// ErrNoReadback is returned when manual alpha compositing is required
	// but the device cannot read pixels back.
	ErrNoReadback = errors.New("xblit: device does not support pixel readback")
)

// Format describes the pixel encoding of one Transfer.
//
// For ordinary transfers it mirrors the probed native layout. When alpha
// blending is requested the pipeline switches to a fixed 32-bit big-endian
// premultiplied ARGB encoding regardless of the native layout, marked by
// Premul; devices route such transfers to an alpha-capable path of their
// own (the X backend blends them against a readback of the drawable, and
// composites baked alpha surfaces through RENDER).
type Format struct {
	BytesPerPixel int
	Depth         int
	MSBFirst      bool
	Premul        bool
}

// Transfer is one batch of converted rows bound for the display, the
// equivalent of a single PutImage request.
type Transfer struct {
	// Bounds is the destination rectangle on the device.
	Bounds image.Rectangle

	// Data holds Bounds.Dy() rows of native-format pixels, RowBytes apart.
	// RowBytes may exceed the packed row length to satisfy the display's
	// scanline padding, and the final row may stop at its last pixel
	// rather than extending to a full RowBytes: direct transfers alias the
	// caller's buffer, which need not carry trailing padding. The slice is
	// only valid for the duration of the call; it may alias a reused
	// scratch buffer.
	Data     []byte
	RowBytes int

	Format Format
}

// Device is the transport to a display surface. Implementations live in the
// backend packages; anything that can clip and accept pixel rows can be a
// blit target, including offscreen surfaces.
type Device interface {
	// ClipRect returns the currently visible portion of r. An empty result
	// makes the draw a no-op.
	ClipRect(r image.Rectangle) image.Rectangle

	// Put transfers one batch of rows to the device.
	Put(t Transfer) error
}

// Visualer is implemented by devices that can report their native pixel
// encoding, letting NewContextFor probe without a separate argument.
type Visualer interface {
	Visual() VisualInfo
}

// PixelReader is the readback capability required by the manual alpha
// compositor: it returns the current contents of r as packed 8-bit RGB
// rows, 3 bytes per pixel, no padding.
type PixelReader interface {
	ReadRGB(r image.Rectangle) ([]byte, error)
}

// Offscreen is a native offscreen surface. It is itself a blit target, so
// the ordinary draw path bakes image content into it. The owner must Close
// it when the content it caches is invalidated.
type Offscreen interface {
	Device
	Close() error
}

// OffscreenDevice is implemented by devices that can create offscreen
// surfaces and replay them, which enables the cached-surface draw path.
type OffscreenDevice interface {
	Device

	// CanBlendAlpha reports whether the device composites premultiplied
	// alpha surfaces natively. Without it, 4-channel images fall back to
	// the manual compositor on every draw.
	CanBlendAlpha() bool

	// NewOffscreen creates a surface of the device's native depth, or an
	// alpha-capable 32-bit surface when alpha is set.
	NewOffscreen(w, h int, alpha bool) (Offscreen, error)

	// CopyArea replays a region of a previously baked surface onto the
	// device, blending when the source carries alpha.
	CopyArea(src Offscreen, srcPt image.Point, dst image.Rectangle) error
}

// MaskCopier is an optional refinement of OffscreenDevice for surfaces
// carrying a separate transparency mask.
type MaskCopier interface {
	CopyAreaMasked(src, mask Offscreen, srcPt image.Point, dst image.Rectangle) error
}

// RectFiller is an optional fast path for solid fills on deep visuals; see
// Context.FillRect.
type RectFiller interface {
	FillRect(r image.Rectangle, cr, cg, cb byte) error
}
