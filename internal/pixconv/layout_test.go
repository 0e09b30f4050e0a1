package pixconv

import (
	"errors"
	"testing"
)

func trueColor(bpp, depth int, msb bool, r, g, b uint32) VisualInfo {
	return VisualInfo{
		BitsPerPixel: bpp,
		Depth:        depth,
		ScanlinePad:  32,
		MSBFirst:     msb,
		TrueColor:    true,
		RedMask:      r,
		GreenMask:    g,
		BlueMask:     b,
	}
}

type nullAllocator struct{}

func (nullAllocator) Pixel(r, g, b byte) (uint32, byte, byte, byte) { return 0, r, g, b }

func TestSelectLayout(t *testing.T) {
	tests := []struct {
		name string
		vis  VisualInfo
		want Kind
	}{
		{"565", trueColor(16, 16, false, 0xF800, 0x07E0, 0x001F), Kind565},
		{"555 generic", trueColor(16, 15, false, 0x7C00, 0x03E0, 0x001F), KindRGB16},
		{"444 generic", trueColor(16, 12, false, 0x0F00, 0x00F0, 0x000F), KindRGB16},
		{"rgb24 lsb", trueColor(24, 24, false, 0x0000FF, 0x00FF00, 0xFF0000), KindRGB24},
		{"bgr24 lsb", trueColor(24, 24, false, 0xFF0000, 0x00FF00, 0x0000FF), KindBGR24},
		{"rgb24 msb", trueColor(24, 24, true, 0xFF0000, 0x00FF00, 0x0000FF), KindRGB24},
		{"rgbx lsb", trueColor(32, 24, false, 0x0000FF, 0x00FF00, 0xFF0000), KindRGBX},
		{"bgrx lsb", trueColor(32, 24, false, 0xFF0000, 0x00FF00, 0x0000FF), KindBGRX},
		{"xrgb lsb", trueColor(32, 24, false, 0x0000FF00, 0x00FF0000, 0xFF000000), KindXRGB},
		{"xbgr lsb", trueColor(32, 24, false, 0xFF000000, 0x00FF0000, 0x0000FF00), KindXBGR},
		{"rgbx msb", trueColor(32, 24, true, 0xFF000000, 0x00FF0000, 0x0000FF00), KindRGBX},
		{"bgrx msb", trueColor(32, 24, true, 0x0000FF00, 0x00FF0000, 0xFF000000), KindBGRX},
		{"30-bit generic", trueColor(32, 30, false, 0x3FF00000, 0x000FFC00, 0x000003FF), KindRGB32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := Select(tt.vis, nil)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if conv.Layout.Kind != tt.want {
				t.Errorf("Select() kind = %v, want %v", conv.Layout.Kind, tt.want)
			}
		})
	}
}

func TestSelectPalette(t *testing.T) {
	vis := VisualInfo{BitsPerPixel: 8, Depth: 8, ScanlinePad: 32}

	if _, err := Select(vis, nil); !errors.Is(err, ErrNoAllocator) {
		t.Errorf("Select() without allocator: error = %v, want ErrNoAllocator", err)
	}

	conv, err := Select(vis, nullAllocator{})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if conv.Layout.Kind != KindPalette {
		t.Errorf("Select() kind = %v, want %v", conv.Layout.Kind, KindPalette)
	}
}

func TestSelectErrors(t *testing.T) {
	tests := []struct {
		name string
		vis  VisualInfo
		want error
	}{
		{"12 bpp", trueColor(12, 12, false, 0xF00, 0x0F0, 0x00F), ErrUnsupportedDepth},
		{"64 bpp", trueColor(64, 48, false, 0xFFFF, 0xFFFF0000, 0), ErrUnsupportedDepth},
		{"pad 12", VisualInfo{BitsPerPixel: 16, Depth: 16, ScanlinePad: 12, TrueColor: true, RedMask: 0xF800, GreenMask: 0x07E0, BlueMask: 0x001F}, ErrBadScanlinePad},
		{"pad 0", VisualInfo{BitsPerPixel: 16, Depth: 16, TrueColor: true, RedMask: 0xF800, GreenMask: 0x07E0, BlueMask: 0x001F}, ErrBadScanlinePad},
		{"odd 24-bit masks", trueColor(24, 24, false, 0x00FF00, 0x0000FF, 0xFF0000), ErrUnsupportedLayout},
		{"narrow 24-bit masks", trueColor(24, 18, false, 0x03F000, 0x000FC0, 0x00003F), ErrUnsupportedLayout},
		{"16-bit colormap", VisualInfo{BitsPerPixel: 16, Depth: 12, ScanlinePad: 32}, ErrUnsupportedColormap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Select(tt.vis, nullAllocator{}); !errors.Is(err, tt.want) {
				t.Errorf("Select() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRowBytesPadding(t *testing.T) {
	tests := []struct {
		name  string
		bpp   int
		align int
		w     int
		want  int
	}{
		{"24-bit unaligned", 3, 4, 3, 12},
		{"24-bit aligned", 3, 4, 4, 12},
		{"16-bit odd width", 2, 4, 5, 12},
		{"8-bit pad 8", 1, 1, 7, 7},
		{"32-bit", 4, 4, 9, 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Layout{BytesPerPixel: tt.bpp, Align: tt.align}
			if got := l.RowBytes(tt.w); got != tt.want {
				t.Errorf("RowBytes(%d) = %d, want %d", tt.w, got, tt.want)
			}
		})
	}
}
