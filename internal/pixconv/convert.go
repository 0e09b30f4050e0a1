package pixconv

// Converter rewrites rows of canonical source pixels into the native layout
// chosen by Select.
//
// The dithering layouts (palette, 16-bit) carry running error accumulators
// and a serpentine direction flag across calls: each invocation flips the
// flag and, when set, processes the row back to front so quantization error
// spreads more evenly than a fixed scan direction would. The accumulators
// are deliberately not reset between rows. A Converter is therefore not
// safe for concurrent use and must convert one image at a time.
type Converter struct {
	Layout Layout

	alloc ColorAllocator

	// serpentine dither state
	dr, dg, db int
	reverse    bool
}

// Color converts w color pixels from src starting at byte offset off,
// advancing delta bytes per pixel (delta may be negative or zero), into dst
// packed contiguously in the native layout. Source pixels are read as R, G,
// B from three consecutive bytes.
func (c *Converter) Color(dst, src []byte, off, w, delta int) {
	switch c.Layout.Kind {
	case KindPalette:
		c.palette(dst, src, off, w, delta, false)
	case Kind565:
		c.pack565(dst, src, off, w, delta)
	case KindRGB16:
		c.pack16(dst, src, off, w, delta)
	case KindRGB24:
		copy24(dst, src, off, w, delta, 0, 1, 2)
	case KindBGR24:
		copy24(dst, src, off, w, delta, 2, 1, 0)
	case KindRGB32:
		c.pack32(dst, src, off, w, delta)
	default: // byte-placed 32-bit layouts
		c.place32(dst, src, off, w, delta)
	}
}

// Mono mirrors Color for single-channel greyscale sources: the one channel
// at each pixel feeds all three destination channels.
func (c *Converter) Mono(dst, src []byte, off, w, delta int) {
	switch c.Layout.Kind {
	case KindPalette:
		c.palette(dst, src, off, w, delta, true)
	case Kind565, KindRGB16:
		c.mono16(dst, src, off, w, delta)
	case KindRGB24, KindBGR24:
		for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+3 {
			v := src[i]
			dst[ti] = v
			dst[ti+1] = v
			dst[ti+2] = v
		}
	case KindRGB32:
		l := &c.Layout
		for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+4 {
			v := src[i]
			l.order.PutUint32(dst[ti:], l.r.place(v)|l.g.place(v)|l.b.place(v))
		}
	default:
		l := &c.Layout
		pad := 6 - l.r.addr - l.g.addr - l.b.addr
		for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+4 {
			v := src[i]
			dst[ti+l.r.addr] = v
			dst[ti+l.g.addr] = v
			dst[ti+l.b.addr] = v
			dst[ti+pad] = 0
		}
	}
}

// serpentine prepares one dithered row: it flips the direction flag and
// returns the starting source offset, source step, starting destination
// pixel index and destination step for this pass.
func (c *Converter) serpentine(off, w, delta int) (i, di, ti, td int) {
	if c.reverse {
		c.reverse = false
		return off + (w-1)*delta, -delta, w - 1, -1
	}
	c.reverse = true
	return off, delta, 0, 1
}

func clamp255(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// palette runs 1-D serpentine error diffusion into a palette-indexed
// destination. The accumulators start from the previous call's remainder;
// the realized color of each allocated cube cell is subtracted back out
// before advancing.
func (c *Converter) palette(dst, src []byte, off, w, delta int, mono bool) {
	i, di, ti, td := c.serpentine(off, w, delta)
	r, g, b := c.dr, c.dg, c.db
	for ; w > 0; w, i, ti = w-1, i+di, ti+td {
		if mono {
			v := int(src[i])
			r = clamp255(r + v)
			g = clamp255(g + v)
			b = clamp255(b + v)
		} else {
			r = clamp255(r + int(src[i]))
			g = clamp255(g + int(src[i+1]))
			b = clamp255(b + int(src[i+2]))
		}
		px, pr, pg, pb := c.alloc.Pixel(byte(r), byte(g), byte(b))
		r -= int(pr)
		g -= int(pg)
		b -= int(pb)
		dst[ti] = byte(px)
	}
	c.dr, c.dg, c.db = r, g, b
}

// pack16 is the generic 16-bit true-color converter. Each accumulator keeps
// the low bits its channel discards as the running dither error, so the
// quantization error per channel never exceeds one output step.
func (c *Converter) pack16(dst, src []byte, off, w, delta int) {
	l := &c.Layout
	i, di, ti, td := c.serpentine(off, w, delta)
	td *= 2
	ti *= 2
	r, g, b := c.dr, c.dg, c.db
	for ; w > 0; w, i, ti = w-1, i+di, ti+td {
		r = r&^int(l.r.keep) + int(src[i])
		if r > 255 {
			r = 255
		}
		g = g&^int(l.g.keep) + int(src[i+1])
		if g > 255 {
			g = 255
		}
		b = b&^int(l.b.keep) + int(src[i+2])
		if b > 255 {
			b = 255
		}
		v := l.r.place(byte(r)&l.r.keep) | l.g.place(byte(g)&l.g.keep) | l.b.place(byte(b)&l.b.keep)
		l.order.PutUint16(dst[ti:], uint16(v))
	}
	c.dr, c.dg, c.db = r, g, b
}

// pack565 special-cases the 5-6-5 layout used by most 16-bit servers.
func (c *Converter) pack565(dst, src []byte, off, w, delta int) {
	l := &c.Layout
	i, di, ti, td := c.serpentine(off, w, delta)
	td *= 2
	ti *= 2
	r, g, b := c.dr, c.dg, c.db
	for ; w > 0; w, i, ti = w-1, i+di, ti+td {
		r = r&7 + int(src[i])
		if r > 255 {
			r = 255
		}
		g = g&3 + int(src[i+1])
		if g > 255 {
			g = 255
		}
		b = b&7 + int(src[i+2])
		if b > 255 {
			b = 255
		}
		l.order.PutUint16(dst[ti:], uint16((r&0xF8)<<8|(g&0xFC)<<3|b>>3))
	}
	c.dr, c.dg, c.db = r, g, b
}

// mono16 dithers a single grey channel into a 16-bit layout. One accumulator
// suffices; the error mask is the intersection of the three channel masks.
func (c *Converter) mono16(dst, src []byte, off, w, delta int) {
	l := &c.Layout
	keep := l.r.keep & l.g.keep & l.b.keep
	i, di, ti, td := c.serpentine(off, w, delta)
	td *= 2
	ti *= 2
	r := c.dr
	for ; w > 0; w, i, ti = w-1, i+di, ti+td {
		r = r&^int(keep) + int(src[i])
		if r > 255 {
			r = 255
		}
		m := byte(r) & keep
		l.order.PutUint16(dst[ti:], uint16(l.r.place(m)|l.g.place(m)|l.b.place(m)))
	}
	c.dr = r
}

// copy24 handles both 3-byte layouts by channel byte address. It is pure:
// no dither state, order independent.
func copy24(dst, src []byte, off, w, delta, ra, ga, ba int) {
	for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+3 {
		dst[ti+ra] = src[i]
		dst[ti+ga] = src[i+1]
		dst[ti+ba] = src[i+2]
	}
}

// place32 writes the four byte-placed 32-bit layouts. The pad byte is
// written as zero; some servers reject image data with junk in the unused
// byte.
func (c *Converter) place32(dst, src []byte, off, w, delta int) {
	l := &c.Layout
	pad := 6 - l.r.addr - l.g.addr - l.b.addr
	for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+4 {
		dst[ti+l.r.addr] = src[i]
		dst[ti+l.g.addr] = src[i+1]
		dst[ti+l.b.addr] = src[i+2]
		dst[ti+pad] = 0
	}
}

// pack32 is the generic shift-based 32-bit fallback for masks that are not
// byte aligned.
func (c *Converter) pack32(dst, src []byte, off, w, delta int) {
	l := &c.Layout
	for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+4 {
		l.order.PutUint32(dst[ti:], l.r.place(src[i])|l.g.place(src[i+1])|l.b.place(src[i+2]))
	}
}

// ARGBPremul converts 4-channel RGBA source pixels into big-endian
// premultiplied ARGB32, the fixed intermediate format used whenever alpha
// blending is requested, regardless of the native layout. The alpha channel
// is carried through exactly; each color channel is scaled by alpha/255
// before packing.
func ARGBPremul(dst, src []byte, off, w, delta int) {
	for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+4 {
		a := uint32(src[i+3])
		dst[ti] = byte(a)
		dst[ti+1] = byte(uint32(src[i]) * a / 255)
		dst[ti+2] = byte(uint32(src[i+1]) * a / 255)
		dst[ti+3] = byte(uint32(src[i+2]) * a / 255)
	}
}

// GreyPremul is the greyscale twin of ARGBPremul for 2-channel grey+alpha
// sources.
func GreyPremul(dst, src []byte, off, w, delta int) {
	for i, ti := off, 0; w > 0; w, i, ti = w-1, i+delta, ti+4 {
		a := uint32(src[i+1])
		v := byte(uint32(src[i]) * a / 255)
		dst[ti] = byte(a)
		dst[ti+1] = v
		dst[ti+2] = v
		dst[ti+3] = v
	}
}
