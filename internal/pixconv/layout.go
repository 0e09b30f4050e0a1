package pixconv

import (
	"encoding/binary"
	"math/bits"
)

// Kind identifies the destination pixel layout a converter produces.
type Kind uint8

const (
	// KindPalette is an 8-bit palette-indexed layout with error diffusion.
	KindPalette Kind = iota

	// KindRGB16 is a 16-bit true-color layout packed per channel mask, with
	// error diffusion in the bits each channel discards.
	KindRGB16

	// Kind565 is the 5-6-5 special case of KindRGB16.
	Kind565

	// KindRGB24 and KindBGR24 are 3-byte layouts distinguished by channel
	// byte order.
	KindRGB24
	KindBGR24

	// The 4-byte layouts are named by channel byte address, X marking the
	// pad byte. KindRGB32 covers masks that are not byte-aligned and packs
	// by shifting.
	KindRGBX
	KindXRGB
	KindBGRX
	KindXBGR
	KindRGB32
)

var kindNames = [...]string{
	KindPalette: "palette",
	KindRGB16:   "rgb16",
	Kind565:     "rgb565",
	KindRGB24:   "rgb24",
	KindBGR24:   "bgr24",
	KindRGBX:    "rgbx",
	KindXRGB:    "xrgb",
	KindBGRX:    "bgrx",
	KindXBGR:    "xbgr",
	KindRGB32:   "rgb32",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// channel describes where one color channel lives in the native pixel word.
type channel struct {
	shift uint // bit offset within the word
	bits  uint // mask width
	keep  byte // high source bits kept; the rest carry dither error
	addr  int  // byte address within the pixel, for byte-placed layouts
}

func makeChannel(mask uint32) channel {
	c := channel{
		shift: uint(bits.TrailingZeros32(mask)),
		bits:  uint(bits.OnesCount32(mask)),
	}
	if c.bits >= 8 {
		c.keep = 0xFF
	} else {
		c.keep = byte(0xFF << (8 - c.bits))
	}
	return c
}

// byteAddr returns the byte address of the channel's low bits within a pixel
// of size bpp bytes, honoring the server's image byte order.
func (c channel) byteAddr(bpp int, msbFirst bool) int {
	if msbFirst {
		return bpp - 1 - int(c.shift)/8
	}
	return int(c.shift) / 8
}

// place packs an 8-bit channel value into its position in the native word.
func (c channel) place(v byte) uint32 {
	if c.bits >= 8 {
		return uint32(v) << (c.bits - 8) << c.shift
	}
	return uint32(v>>(8-c.bits)) << c.shift
}

// Layout is the resolved destination pixel layout chosen by Select.
type Layout struct {
	Kind          Kind
	BytesPerPixel int
	Depth         int
	Align         int  // scanline padding in bytes
	MSBFirst      bool // server image byte order
	r, g, b       channel
	order         binary.ByteOrder // store order for 16- and 32-bit words
}

// RowBytes returns the padded byte length of one destination row of w pixels.
func (l Layout) RowBytes(w int) int {
	n := w * l.BytesPerPixel
	return (n + l.Align - 1) &^ (l.Align - 1)
}

// Select validates a visual and returns a converter bound to the matching
// layout. The specialized layouts are preferred over the generic shift-based
// ones when the channel masks match exactly.
//
// alloc is consulted only for palette visuals and may be nil otherwise.
func Select(v VisualInfo, alloc ColorAllocator) (*Converter, error) {
	if v.BitsPerPixel&7 != 0 {
		return nil, ErrUnsupportedDepth
	}
	bpp := v.BitsPerPixel / 8

	pad := v.ScanlinePad
	if pad < 8 || pad&(pad-1) != 0 {
		return nil, ErrBadScanlinePad
	}

	l := Layout{
		BytesPerPixel: bpp,
		Depth:         v.Depth,
		Align:         pad / 8,
		MSBFirst:      v.MSBFirst,
	}
	if v.MSBFirst {
		l.order = binary.BigEndian
	} else {
		l.order = binary.LittleEndian
	}

	if !v.TrueColor {
		if v.BitsPerPixel != 8 {
			return nil, ErrUnsupportedColormap
		}
		if alloc == nil {
			return nil, ErrNoAllocator
		}
		l.Kind = KindPalette
		return &Converter{Layout: l, alloc: alloc}, nil
	}

	l.r = makeChannel(v.RedMask)
	l.g = makeChannel(v.GreenMask)
	l.b = makeChannel(v.BlueMask)

	switch bpp {
	case 2:
		if l.r.shift == 11 && l.r.bits == 5 &&
			l.g.shift == 5 && l.g.bits == 6 &&
			l.b.shift == 0 && l.b.bits == 5 {
			l.Kind = Kind565
		} else {
			l.Kind = KindRGB16
		}

	case 3:
		ra, ga, ba := l.r.byteAddr(3, v.MSBFirst), l.g.byteAddr(3, v.MSBFirst), l.b.byteAddr(3, v.MSBFirst)
		if l.r.bits != 8 || l.g.bits != 8 || l.b.bits != 8 || ga != 1 {
			return nil, ErrUnsupportedLayout
		}
		switch {
		case ra == 0 && ba == 2:
			l.Kind = KindRGB24
		case ra == 2 && ba == 0:
			l.Kind = KindBGR24
		default:
			return nil, ErrUnsupportedLayout
		}

	case 4:
		l.Kind = KindRGB32
		if l.r.bits == 8 && l.g.bits == 8 && l.b.bits == 8 &&
			l.r.shift%8 == 0 && l.g.shift%8 == 0 && l.b.shift%8 == 0 {
			ra, ga, ba := l.r.byteAddr(4, v.MSBFirst), l.g.byteAddr(4, v.MSBFirst), l.b.byteAddr(4, v.MSBFirst)
			switch {
			case ra == 0 && ga == 1 && ba == 2:
				l.Kind = KindRGBX
			case ra == 1 && ga == 2 && ba == 3:
				l.Kind = KindXRGB
			case ra == 2 && ga == 1 && ba == 0:
				l.Kind = KindBGRX
			case ra == 3 && ga == 2 && ba == 1:
				l.Kind = KindXBGR
			}
		}
		l.r.addr = l.r.byteAddr(4, v.MSBFirst)
		l.g.addr = l.g.byteAddr(4, v.MSBFirst)
		l.b.addr = l.b.byteAddr(4, v.MSBFirst)

	default:
		return nil, ErrUnsupportedDepth
	}

	return &Converter{Layout: l}, nil
}
