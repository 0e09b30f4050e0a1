package xblit

import (
	"fmt"

	"github.com/gogpu/xblit/internal/pixconv"
)

// VisualInfo describes a display's native pixel encoding; backends fill it
// from their connection setup data.
type VisualInfo = pixconv.VisualInfo

// ColorAllocator resolves RGB triples to native pixel values on
// palette-indexed visuals; see the colorcube package for the stock
// implementation.
type ColorAllocator = pixconv.ColorAllocator

// Context is the rendering context for one display visual. It owns
// everything the original per-process converter state would have been: the
// probed pixel layout, the selected converter pair with its dither
// accumulators, and the reusable conversion buffers.
//
// A Context is bound to the visual it was created for and is not safe for
// concurrent use. All drawing through one Context must happen on a single
// goroutine, and a RowFunc must never re-enter the drawing pipeline: the
// scratch buffer it would corrupt is shared across the whole Context.
type Context struct {
	visual VisualInfo
	conv   *pixconv.Converter

	maxScratch int

	// scratch is the conversion buffer, grown on demand and never shrunk.
	// line buffers one callback-produced row.
	scratch []byte
	line    []byte
}

// NewContext probes the visual and selects the matching converter pair.
// Unsupported visuals are environment violations the pipeline has no
// fallback for; they surface here as errors wrapping the pixconv sentinel
// values rather than at draw time.
func NewContext(v VisualInfo, opts ...Option) (*Context, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	conv, err := pixconv.Select(v, o.alloc)
	if err != nil {
		return nil, fmt.Errorf("xblit: probing visual: %w", err)
	}

	Logger().Debug("xblit: pixel layout selected",
		"layout", conv.Layout.Kind.String(),
		"bytesPerPixel", conv.Layout.BytesPerPixel,
		"align", conv.Layout.Align)

	return &Context{
		visual:     v,
		conv:       conv,
		maxScratch: o.maxScratch,
	}, nil
}

// NewContextFor probes the device's own visual.
func NewContextFor(dev Device, opts ...Option) (*Context, error) {
	vz, ok := dev.(Visualer)
	if !ok {
		return nil, ErrNoVisual
	}
	return NewContext(vz.Visual(), opts...)
}

// Visual returns the visual the context was created for.
func (c *Context) Visual() VisualInfo { return c.visual }
