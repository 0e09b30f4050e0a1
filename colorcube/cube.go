// Package colorcube maps continuous RGB colors onto a bounded palette
// through a fixed discretization of RGB space.
//
// A Cube divides each axis of RGB space into a small number of levels and
// binds each cell, on first use, to the perceptually nearest entry of a
// caller-supplied palette. The default 5x8x5 geometry gives 200 cells, small
// enough to allocate from a shared 8-bit colormap while keeping green, the
// channel the eye resolves best, at the finest granularity.
package colorcube

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Default cube geometry: levels per axis.
const (
	DefaultReds   = 5
	DefaultGreens = 8
	DefaultBlues  = 5
)

type cell struct {
	pixel   uint32
	r, g, b byte
	bound   bool
}

// Cube is a lazily bound color cube over a fixed palette. It implements the
// color-allocation capability consumed by the palette pixel converter.
//
// Cube is not safe for concurrent use; the rendering pipeline that owns it
// is single-threaded.
type Cube struct {
	nr, ng, nb int
	palette    []colorful.Color
	native     []uint32 // native pixel value per palette entry
	rgb        []color.RGBA
	cells      []cell
}

// New builds a cube of the default geometry over the given palette. The
// native pixel value of palette entry i is taken to be i itself, which suits
// an indexed framebuffer; use NewWithPixels when the display hands out
// different handles.
func New(p color.Palette) *Cube {
	pixels := make([]uint32, len(p))
	for i := range pixels {
		pixels[i] = uint32(i)
	}
	return NewWithPixels(p, pixels, DefaultReds, DefaultGreens, DefaultBlues)
}

// NewWithPixels builds a cube with explicit geometry and per-entry native
// pixel values. len(pixels) must equal len(p).
func NewWithPixels(p color.Palette, pixels []uint32, nr, ng, nb int) *Cube {
	c := &Cube{
		nr:      nr,
		ng:      ng,
		nb:      nb,
		palette: make([]colorful.Color, len(p)),
		native:  pixels,
		rgb:     make([]color.RGBA, len(p)),
		cells:   make([]cell, nr*ng*nb),
	}
	for i, e := range p {
		r, g, b, _ := e.RGBA()
		rgb := color.RGBA{R: byte(r >> 8), G: byte(g >> 8), B: byte(b >> 8), A: 0xFF}
		c.rgb[i] = rgb
		if cf, ok := colorful.MakeColor(e); ok {
			c.palette[i] = cf
		} else {
			// Fully transparent entries cannot be un-premultiplied;
			// position them by their raw channel values.
			c.palette[i] = colorful.Color{
				R: float64(rgb.R) / 255,
				G: float64(rgb.G) / 255,
				B: float64(rgb.B) / 255,
			}
		}
	}
	return c
}

// index returns the cell index for an RGB triple.
func (c *Cube) index(r, g, b byte) int {
	ri := int(r) * c.nr / 256
	gi := int(g) * c.ng / 256
	bi := int(b) * c.nb / 256
	return (ri*c.ng+gi)*c.nb + bi
}

// bind resolves a cell to the palette entry nearest its canonical color by
// CIE-Lab distance.
func (c *Cube) bind(idx int) *cell {
	bi := idx % c.nb
	gi := idx / c.nb % c.ng
	ri := idx / c.nb / c.ng
	want := colorful.Color{
		R: float64(ri) / float64(c.nr-1),
		G: float64(gi) / float64(c.ng-1),
		B: float64(bi) / float64(c.nb-1),
	}
	best, bestDist := 0, -1.0
	for i, e := range c.palette {
		d := want.DistanceLab(e)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	cl := &c.cells[idx]
	cl.pixel = c.native[best]
	cl.r = c.rgb[best].R
	cl.g = c.rgb[best].G
	cl.b = c.rgb[best].B
	cl.bound = true
	return cl
}

// Pixel quantizes (r,g,b) to a cube cell, binding the cell on first use, and
// returns the native pixel value together with the realized color.
func (c *Cube) Pixel(r, g, b byte) (pixel uint32, pr, pg, pb byte) {
	idx := c.index(r, g, b)
	cl := &c.cells[idx]
	if !cl.bound {
		cl = c.bind(idx)
	}
	return cl.pixel, cl.r, cl.g, cl.b
}

// Lookup returns the realized color for a native pixel value previously
// handed out by Pixel, for readback from an indexed framebuffer. ok is false
// for values the cube never produced.
func (c *Cube) Lookup(pixel uint32) (r, g, b byte, ok bool) {
	for i, n := range c.native {
		if n == pixel {
			e := c.rgb[i]
			return e.R, e.G, e.B, true
		}
	}
	return 0, 0, 0, false
}
