// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package x11

import (
	"errors"
	"testing"

	"github.com/jezek/xgb/xproto"
)

func testSetup() (*xproto.SetupInfo, *xproto.ScreenInfo) {
	screen := &xproto.ScreenInfo{
		RootVisual: 0x21,
		RootDepth:  24,
		AllowedDepths: []xproto.DepthInfo{
			{Depth: 1},
			{
				Depth: 24,
				Visuals: []xproto.VisualInfo{{
					VisualId:  0x21,
					Class:     xproto.VisualClassTrueColor,
					RedMask:   0xFF0000,
					GreenMask: 0x00FF00,
					BlueMask:  0x0000FF,
				}},
			},
		},
	}
	setup := &xproto.SetupInfo{
		ImageByteOrder: xproto.ImageOrderLSBFirst,
		PixmapFormats: []xproto.Format{
			{Depth: 1, BitsPerPixel: 1, ScanlinePad: 32},
			{Depth: 24, BitsPerPixel: 32, ScanlinePad: 32},
		},
	}
	return setup, screen
}

func TestProbeVisual(t *testing.T) {
	setup, screen := testSetup()
	vis, depth, _, _, _, err := probeVisual(setup, screen)
	if err != nil {
		t.Fatalf("probeVisual() error = %v", err)
	}
	if depth != 24 {
		t.Errorf("depth = %d, want 24", depth)
	}
	// A depth-24 visual stores 32 bits per pixel on this server.
	if vis.BitsPerPixel != 32 || vis.Depth != 24 || vis.ScanlinePad != 32 {
		t.Errorf("vis = %+v, want 32 bpp, depth 24, pad 32", vis)
	}
	if vis.MSBFirst {
		t.Errorf("LSB-first server probed as MSB-first")
	}
	if !vis.TrueColor || vis.RedMask != 0xFF0000 {
		t.Errorf("vis = %+v, want true color with red in the high byte", vis)
	}
}

func TestProbeVisualMissingRoot(t *testing.T) {
	setup, screen := testSetup()
	screen.RootVisual = 0x99
	if _, _, _, _, _, err := probeVisual(setup, screen); !errors.Is(err, ErrNoTrueColorVisual) {
		t.Errorf("probeVisual() error = %v, want ErrNoTrueColorVisual", err)
	}
}

func TestBatchRowsTightBuffer(t *testing.T) {
	// 2 rows at a 16-byte stride, but the buffer stops at the last pixel
	// of the second row: slicing must clamp instead of overrunning.
	data := make([]byte, 28)

	if got := batchRows(data, 16, 0, 2); len(got) != 28 {
		t.Errorf("batchRows(0, 2) returned %d bytes, want 28", len(got))
	}
	if got := batchRows(data, 16, 1, 1); len(got) != 12 {
		t.Errorf("batchRows(1, 1) returned %d bytes, want 12", len(got))
	}
	if got := batchRows(data, 16, 0, 1); len(got) != 16 {
		t.Errorf("batchRows(0, 1) returned %d bytes, want 16", len(got))
	}
}

func TestChannelWidening(t *testing.T) {
	tests := []struct {
		name  string
		mask  uint32
		pixel uint32
		want  byte
	}{
		{"8-bit exact", 0x00FF00, 0x00AB00, 0xAB},
		{"5-bit full", 0xF800, 0xF800, 0xFF},
		{"5-bit zero", 0xF800, 0x07FF, 0x00},
		{"6-bit full", 0x07E0, 0x07E0, 0xFF},
		{"5-bit mid", 0xF800, 0x8000, 0x84}, // 10000 widens to 10000100
		{"10-bit full", 0x3FF00000, 0x3FF00000, 0xFF},
		{"10-bit keeps top byte", 0x3FF00000, 0x2A800000, 0xAA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := makeChannel(tt.mask)
			if got := c.to8(tt.pixel); got != tt.want {
				t.Errorf("to8(%#x) = %#x, want %#x", tt.pixel, got, tt.want)
			}
		})
	}

	c := makeChannel(0xF800)
	if got := c.from8(0xFF); got != 0xF800 {
		t.Errorf("from8(0xFF) = %#x, want 0xF800", got)
	}
	if got := c.from8(0x84); got != 0x8000 {
		t.Errorf("from8(0x84) = %#x, want 0x8000", got)
	}
}
