package capture

import (
	"image/color"
	"testing"
	"unsafe"
)

func TestFrameImageConvertsBGRA(t *testing.T) {
	const w, h, pitch = 2, 2, 16
	pix := make([]byte, pitch*h)
	// (0,0) blue, (1,0) red, (0,1) green, (1,1) half-transparent white.
	copy(pix[0:], []byte{255, 0, 0, 255, 0, 0, 255, 255})
	copy(pix[pitch:], []byte{0, 255, 0, 255, 255, 255, 255, 128})

	f := &Frame{
		desc:     TextureDesc{Width: w, Height: h, Format: FormatB8G8R8A8UNorm},
		data:     unsafe.Pointer(&pix[0]),
		rowPitch: pitch,
	}
	if got := len(f.Bytes()); got != pitch+w*4 {
		t.Fatalf("len(Bytes()) = %d, want %d", got, pitch+w*4)
	}

	img, err := f.Image()
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, color.NRGBA{B: 255, A: 255}},
		{1, 0, color.NRGBA{R: 255, A: 255}},
		{0, 1, color.NRGBA{G: 255, A: 255}},
		{1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 128}},
	}
	for _, tt := range tests {
		if got := img.NRGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestFrameImageRejectsUnknownFormat(t *testing.T) {
	pix := make([]byte, 4)
	f := &Frame{
		desc:     TextureDesc{Width: 1, Height: 1, Format: FormatUnknown},
		data:     unsafe.Pointer(&pix[0]),
		rowPitch: 4,
	}
	if _, err := f.Image(); err == nil {
		t.Fatal("Image() should fail for an unknown pixel format")
	}
}

func TestFrameStateString(t *testing.T) {
	tests := map[FrameState]string{
		FrameReady:   "ready",
		FramePending: "pending",
		FrameEnded:   "ended",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
