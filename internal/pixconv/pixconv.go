// Package pixconv selects and runs per-row pixel converters that translate
// canonical 8-bit-per-channel image rows into a display's native pixel
// encoding.
//
// The canonical source layout is the one the rest of the module speaks:
// packed bytes, one to four channels per pixel, a caller-chosen byte stride
// between pixels (possibly negative), rows addressed by the caller. The
// destination layout is whatever the connected display reports: 8-bit
// palette, 16-bit true color with arbitrary channel masks, 24-bit RGB or
// BGR, or 32-bit words in any byte order.
//
// Select inspects a VisualInfo and returns a Converter bound to the matching
// layout, or an error when the visual is one the converter set cannot
// handle. Converters carrying dither state are not safe for concurrent use;
// the owning rendering context serializes all conversion.
package pixconv

import "errors"

// Errors reported by Select for visuals outside the supported set.
var (
	// ErrUnsupportedDepth is returned when bits-per-pixel is not 8, 16, 24 or 32.
	ErrUnsupportedDepth = errors.New("pixconv: unsupported bits per pixel")

	// ErrBadScanlinePad is returned when the scanline pad is not a power of
	// two of at least 8 bits.
	ErrBadScanlinePad = errors.New("pixconv: scanline pad is not a power of two >= 8")

	// ErrUnsupportedLayout is returned when a true-color visual's channel
	// masks do not fit any supported layout for its byte width.
	ErrUnsupportedLayout = errors.New("pixconv: unsupported channel mask layout")

	// ErrUnsupportedColormap is returned for palette visuals whose colormap
	// depth is not 8.
	ErrUnsupportedColormap = errors.New("pixconv: unsupported colormap depth")

	// ErrNoAllocator is returned when a palette visual is selected without a
	// color allocator to resolve cube cells to native pixels.
	ErrNoAllocator = errors.New("pixconv: palette visual requires a color allocator")
)

// VisualInfo describes a display's native pixel encoding as reported by the
// server. Backends fill it from their connection setup data; it is consumed
// once by Select.
type VisualInfo struct {
	// BitsPerPixel is the storage size of one pixel, from the server's
	// pixmap-format list for the visual's depth.
	BitsPerPixel int

	// Depth is the number of significant bits per pixel.
	Depth int

	// ScanlinePad is the bit alignment the server requires for the start of
	// each scanline in transferred image data.
	ScanlinePad int

	// MSBFirst reports the server's image byte order.
	MSBFirst bool

	// TrueColor is false for palette-indexed visuals.
	TrueColor bool

	// Channel masks, meaningful only for true-color visuals. Mask bits are
	// assumed contiguous with at least one bit per channel; this is not
	// checked.
	RedMask, GreenMask, BlueMask uint32
}

// ColorAllocator maps an RGB triple to a native pixel value for
// palette-indexed visuals. Implementations quantize to a fixed color cube
// and allocate cube cells lazily on first use.
//
// Pixel returns the native pixel value together with the realized color of
// the chosen cell, which the dithering converter subtracts back out of its
// error accumulators.
type ColorAllocator interface {
	Pixel(r, g, b byte) (pixel uint32, pr, pg, pb byte)
}
