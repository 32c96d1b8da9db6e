package capture

import "fmt"

// Size is a width/height pair in pixels.
type Size struct {
	Width  uint32
	Height uint32
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Rect is a signed rectangle in screen or window coordinates.
type Rect struct {
	Left, Top, Right, Bottom int32
}

func (r Rect) Width() int32  { return r.Right - r.Left }
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Point is a signed screen coordinate.
type Point struct {
	X, Y int32
}

// Box matches the layout of D3D11_BOX: the source subregion copied from a
// captured surface into the staging texture.
type Box struct {
	Left, Top, Front, Right, Bottom, Back uint32
}

func (b Box) Width() uint32  { return b.Right - b.Left }
func (b Box) Height() uint32 { return b.Bottom - b.Top }

// Size returns the extent of the box.
func (b Box) Size() Size {
	return Size{Width: b.Width(), Height: b.Height()}
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Right <= b.Left || b.Bottom <= b.Top || b.Back <= b.Front
}

// Within reports whether b lies entirely inside a surface of the given size.
func (b Box) Within(s Size) bool {
	return b.Right <= s.Width && b.Bottom <= s.Height
}

func (b Box) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", b.Left, b.Top, b.Width(), b.Height())
}

// WindowClientBox computes the client area of a window inside the surface
// Windows.Graphics.Capture produces for it. The captured surface has a
// one pixel gap on the left edge, and its top edge lines up with the window
// rectangle, so the client area starts at the client origin's offset from
// the window top.
func WindowClientBox(window, client Rect, clientOrigin Point) Box {
	top := clientOrigin.Y - window.Top
	if top < 0 {
		top = 0
	}
	b := Box{
		Left:  1,
		Top:   uint32(top),
		Front: 0,
		Back:  1,
	}
	b.Right = b.Left + uint32(max(client.Width(), 0))
	b.Bottom = b.Top + uint32(max(client.Height(), 0))
	return b
}

// DisplayBox covers a monitor's full virtual-screen rectangle.
func DisplayBox(monitor Rect) Box {
	return Box{
		Right:  uint32(max(monitor.Width(), 0)),
		Bottom: uint32(max(monitor.Height(), 0)),
		Back:   1,
	}
}
