package wgc

import (
	"fmt"

	"github.com/wgcap/wgcap/internal/capture"
	"github.com/wgcap/wgcap/internal/logging"
)

var log = logging.L("wgc")

var (
	_ capture.Target = (*Window)(nil)
	_ capture.Target = (*Display)(nil)
)

// Window is a top-level application window.
type Window struct {
	Handle    uintptr
	Title     string
	ClassName string
}

func (w *Window) Kind() capture.TargetKind { return capture.KindWindow }

// RawHandle returns the HWND.
func (w *Window) RawHandle() uintptr { return w.Handle }

func (w *Window) String() string {
	return fmt.Sprintf("%q [%s] 0x%X", w.Title, w.ClassName, w.Handle)
}

// Display is a monitor. Bounds are in virtual-screen coordinates.
type Display struct {
	Handle uintptr
	Name   string
	Bounds capture.Rect
}

func (d *Display) Kind() capture.TargetKind { return capture.KindDisplay }

// RawHandle returns the HMONITOR.
func (d *Display) RawHandle() uintptr { return d.Handle }

// ClientRegion covers the whole monitor.
func (d *Display) ClientRegion() (capture.Box, error) {
	return capture.DisplayBox(d.Bounds), nil
}

// CloseSignal returns a signal that never fires. Monitors are not watched
// for removal; a session on an unplugged display simply stops receiving
// frames.
func (d *Display) CloseSignal() *capture.CloseSignal {
	return capture.NewCloseSignal()
}

func (d *Display) String() string {
	b := d.Bounds
	return fmt.Sprintf("%s %dx%d at (%d,%d)", d.Name, b.Width(), b.Height(), b.Left, b.Top)
}

// Backend creates Direct3D 11 devices and WinRT frame pools for
// capture.NewSession.
type Backend struct{}

var _ capture.Backend = (*Backend)(nil)

// NewSession creates a capture session for target on the Windows backend.
func NewSession(target capture.Target, opts capture.Options) (*capture.Session, error) {
	backend, err := NewBackend()
	if err != nil {
		return nil, err
	}
	return capture.NewSession(target, backend, opts)
}
