package xblit

import (
	"errors"
	"image"
	"testing"
)

type fakeOffscreen struct {
	fakeDevice
	w, h   int
	alpha  bool
	closed bool
}

func (o *fakeOffscreen) Close() error {
	o.closed = true
	return nil
}

type copyOp struct {
	srcPt image.Point
	dst   image.Rectangle
}

type fakeOffDevice struct {
	fakeReader
	canAlpha bool
	newErr   error
	newCalls int
	created  []*fakeOffscreen
	copies   []copyOp
}

func (d *fakeOffDevice) CanBlendAlpha() bool { return d.canAlpha }

func (d *fakeOffDevice) NewOffscreen(w, h int, alpha bool) (Offscreen, error) {
	d.newCalls++
	if d.newErr != nil {
		return nil, d.newErr
	}
	o := &fakeOffscreen{w: w, h: h, alpha: alpha}
	d.created = append(d.created, o)
	return o, nil
}

func (d *fakeOffDevice) CopyArea(src Offscreen, srcPt image.Point, dst image.Rectangle) error {
	d.copies = append(d.copies, copyOp{srcPt: srcPt, dst: dst})
	return nil
}

type fakeMaskDevice struct {
	fakeOffDevice
	maskCopies []copyOp
}

func (d *fakeMaskDevice) CopyAreaMasked(src, mask Offscreen, srcPt image.Point, dst image.Rectangle) error {
	d.maskCopies = append(d.maskCopies, copyOp{srcPt: srcPt, dst: dst})
	return nil
}

func TestImageDrawBakesOnce(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{}
	im := NewImage(*testImage(4, 4))
	defer im.Close()

	if err := im.Draw(c, dev, image.Rect(10, 10, 14, 14), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(1, 1)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	if len(dev.created) != 1 {
		t.Fatalf("allocated %d surfaces, want 1", len(dev.created))
	}
	surf := dev.created[0]
	if surf.w != 4 || surf.h != 4 || surf.alpha {
		t.Errorf("surface = %dx%d alpha=%v, want 4x4 opaque", surf.w, surf.h, surf.alpha)
	}
	if len(surf.puts) == 0 {
		t.Errorf("nothing was converted into the surface")
	}
	if len(dev.puts) != 0 {
		t.Errorf("cached draw still transferred %d batches to the device", len(dev.puts))
	}

	want := []copyOp{
		{srcPt: image.Pt(0, 0), dst: image.Rect(10, 10, 14, 14)},
		{srcPt: image.Pt(1, 1), dst: image.Rect(0, 0, 2, 2)},
	}
	if len(dev.copies) != len(want) {
		t.Fatalf("made %d copies, want %d", len(dev.copies), len(want))
	}
	for i, w := range want {
		if dev.copies[i] != w {
			t.Errorf("copy %d = %+v, want %+v", i, dev.copies[i], w)
		}
	}
}

func TestImageDrawAlphaBakedWhenCapable(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{canAlpha: true}
	im := NewImage(SourceImage{
		Pix: []byte{255, 0, 0, 128, 0, 255, 0, 255},
		Width: 2, Height: 1, Channels: 4, Alpha: true,
	})
	defer im.Close()

	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 1), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	if len(dev.created) != 1 || !dev.created[0].alpha {
		t.Fatalf("expected one alpha surface, got %+v", dev.created)
	}
	surf := dev.created[0]
	if len(surf.puts) == 0 || !surf.puts[0].format.Premul {
		t.Errorf("surface did not receive a premultiplied transfer")
	}
	if len(dev.copies) != 1 {
		t.Errorf("made %d copies, want 1", len(dev.copies))
	}
}

func TestImageDrawAlphaCompositedWithoutCapability(t *testing.T) {
	// Without native alpha blending a 4-channel image is blended by hand
	// against the read-back destination on every draw.
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{canAlpha: false}
	dev.background = []byte{0, 0, 255}
	im := NewImage(SourceImage{
		Pix: []byte{255, 0, 0, 128}, Width: 1, Height: 1, Channels: 4, Alpha: true,
	})
	defer im.Close()

	for i := 0; i < 2; i++ {
		if err := im.Draw(c, dev, image.Rect(0, 0, 1, 1), image.Pt(0, 0)); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}

	if len(dev.created) != 0 {
		t.Errorf("allocated %d surfaces, want 0", len(dev.created))
	}
	if len(dev.puts) != 2 {
		t.Fatalf("made %d transfers, want 2 (one per draw)", len(dev.puts))
	}
	got := dev.puts[0].data[:3]
	// (255,0,0) at alpha 128 over (0,0,255).
	want := []byte{128, 0, 127}
	if got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("blended pixel = %v, want %v", got, want)
	}
}

func TestImageDrawBakeFailureDegrades(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{newErr: errors.New("out of surfaces")}
	im := NewImage(*testImage(2, 2))
	defer im.Close()

	for i := 0; i < 2; i++ {
		if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(0, 0)); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}

	if dev.newCalls != 1 {
		t.Errorf("surface allocation retried %d times, want 1", dev.newCalls)
	}
	if len(dev.puts) != 2 {
		t.Errorf("made %d direct transfers, want 2", len(dev.puts))
	}
	if len(dev.copies) != 0 {
		t.Errorf("made %d copies from a surface that never existed", len(dev.copies))
	}
}

func TestImageDrawPlainDevice(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeDevice{}
	im := NewImage(*testImage(2, 2))
	defer im.Close()

	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(dev.puts) != 1 {
		t.Errorf("made %d transfers, want 1", len(dev.puts))
	}
}

func TestImageDrawAlphaNoReadback(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeDevice{} // no ReadRGB, no offscreens
	im := NewImage(SourceImage{
		Pix: []byte{1, 2, 3, 4}, Width: 1, Height: 1, Channels: 4, Alpha: true,
	})
	defer im.Close()

	err := im.Draw(c, dev, image.Rect(0, 0, 1, 1), image.Pt(0, 0))
	if !errors.Is(err, ErrNoReadback) {
		t.Errorf("Draw() error = %v, want ErrNoReadback", err)
	}
}

func TestImageDrawOutsideExtent(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{}
	im := NewImage(*testImage(4, 4))
	defer im.Close()

	// offset selects a region entirely past the image.
	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(10, 10)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(dev.copies) != 0 || len(dev.puts) != 0 {
		t.Errorf("out-of-extent draw touched the device")
	}
	if dev.newCalls != 0 {
		t.Errorf("out-of-extent draw allocated a surface")
	}
}

func TestImageInvalidateRebakes(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{}
	im := NewImage(*testImage(2, 2))
	defer im.Close()

	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	im.Invalidate()
	if !dev.created[0].closed {
		t.Errorf("Invalidate() did not close the baked surface")
	}
	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(dev.created) != 2 {
		t.Errorf("allocated %d surfaces after invalidation, want 2", len(dev.created))
	}
}

func TestImageDrawWithMask(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeMaskDevice{}
	im := NewImage(*testImage(2, 2))
	defer im.Close()

	mask := &fakeOffscreen{w: 2, h: 2}
	im.SetMask(mask)

	if err := im.Draw(c, dev, image.Rect(3, 3, 5, 5), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if len(dev.maskCopies) != 1 {
		t.Fatalf("made %d masked copies, want 1", len(dev.maskCopies))
	}
	if len(dev.copies) != 0 {
		t.Errorf("also made %d unmasked copies", len(dev.copies))
	}
	if dev.maskCopies[0].dst != image.Rect(3, 3, 5, 5) {
		t.Errorf("masked copy dst = %v", dev.maskCopies[0].dst)
	}
}

func TestImageClose(t *testing.T) {
	c := mustContext(t, rgb24Visual())
	dev := &fakeOffDevice{}
	im := NewImage(*testImage(2, 2))

	mask := &fakeOffscreen{}
	im.SetMask(mask)
	if err := im.Draw(c, dev, image.Rect(0, 0, 2, 2), image.Pt(0, 0)); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if err := im.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !dev.created[0].closed || !mask.closed {
		t.Errorf("Close() left surface closed=%v mask closed=%v", dev.created[0].closed, mask.closed)
	}
}
