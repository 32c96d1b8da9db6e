package capture

import (
	"fmt"
	"image"
	"unsafe"
)

// FrameState is the outcome of a non-blocking grab.
type FrameState int

const (
	// FrameReady means a frame was returned.
	FrameReady FrameState = iota
	// FramePending means no frame is queued yet but the session is alive.
	FramePending
	// FrameEnded means the target was destroyed or the session stopped.
	FrameEnded
)

func (s FrameState) String() string {
	switch s {
	case FrameReady:
		return "ready"
	case FramePending:
		return "pending"
	case FrameEnded:
		return "ended"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// Frame is a cropped capture result. It aliases the session's single live
// staging texture and is only valid until the next grab.
type Frame struct {
	texture  Texture
	desc     TextureDesc
	data     unsafe.Pointer
	rowPitch uint32
}

func (f *Frame) Width() uint32       { return f.desc.Width }
func (f *Frame) Height() uint32      { return f.desc.Height }
func (f *Frame) Format() PixelFormat { return f.desc.Format }

// RowPitch is the byte stride of one row. It may exceed Width times the
// pixel size. Zero for GPU-only frames.
func (f *Frame) RowPitch() uint32 { return f.rowPitch }

// Texture returns the staging texture backing the frame.
func (f *Frame) Texture() Texture { return f.texture }

// Mapped reports whether the frame carries a CPU pointer.
func (f *Frame) Mapped() bool { return f.data != nil }

// Data returns the CPU pointer to the first row, or nil.
func (f *Frame) Data() unsafe.Pointer { return f.data }

// Bytes returns a view of the mapped pixels. Rows start RowPitch bytes
// apart and the last row ends after Width pixels.
func (f *Frame) Bytes() []byte {
	if f.data == nil || f.desc.Height == 0 {
		return nil
	}
	n := int(f.rowPitch)*int(f.desc.Height-1) + int(f.desc.Width)*f.desc.Format.BytesPerPixel()
	return unsafe.Slice((*byte)(f.data), n)
}

// Image copies a mapped BGRA frame into a new NRGBA image.
func (f *Frame) Image() (*image.NRGBA, error) {
	if f.data == nil {
		return nil, ErrNotMapped
	}
	if f.desc.Format != FormatB8G8R8A8UNorm {
		return nil, fmt.Errorf("capture: unsupported pixel format %d", f.desc.Format)
	}

	w, h := int(f.desc.Width), int(f.desc.Height)
	src := f.Bytes()
	pitch := int(f.rowPitch)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src[y*pitch : y*pitch+w*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			dst[x+0] = row[x+2]
			dst[x+1] = row[x+1]
			dst[x+2] = row[x+0]
			dst[x+3] = row[x+3]
		}
	}
	return img, nil
}
