//go:build windows

package wgc

import (
	"fmt"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"github.com/wgcap/wgcap/internal/capture"
)

// sizeInt32 matches Windows.Graphics.SizeInt32.
type sizeInt32 struct {
	Width  int32
	Height int32
}

// captureItem is an IGraphicsCaptureItem.
type captureItem struct {
	ptr uintptr
}

func (c *captureItem) Size() (capture.Size, error) {
	var s sizeInt32
	if err := comCall(c.ptr, vtblItemGetSize, uintptr(unsafe.Pointer(&s))); err != nil {
		return capture.Size{}, fmt.Errorf("get_Size: %w", err)
	}
	return capture.Size{Width: uint32(max(s.Width, 0)), Height: uint32(max(s.Height, 0))}, nil
}

func (c *captureItem) Close() error {
	comRelease(c.ptr)
	c.ptr = 0
	return nil
}

// createItem calls CreateForWindow or CreateForMonitor on the interop
// factory.
func createItem(slot int, handle uintptr) (*captureItem, error) {
	interop, _, err := activationFactories()
	if err != nil {
		return nil, err
	}
	item := &captureItem{}
	if err := comCall(interop, slot,
		handle,
		uintptr(unsafe.Pointer(iidIGraphicsCaptureItem)),
		uintptr(unsafe.Pointer(&item.ptr)),
	); err != nil {
		return nil, err
	}
	return item, nil
}

func (w *Window) CreateCaptureItem() (capture.CaptureItem, error) {
	item, err := createItem(vtblItemInteropCreateForWindow, w.Handle)
	if err != nil {
		return nil, fmt.Errorf("CreateForWindow %s: %w", w, err)
	}
	return item, nil
}

// ClientRegion maps the client area into the captured surface.
func (w *Window) ClientRegion() (capture.Box, error) {
	hwnd := win.HWND(w.Handle)

	var wr, cr win.RECT
	if !win.GetWindowRect(hwnd, &wr) {
		return capture.Box{}, fmt.Errorf("GetWindowRect: %w", windows.GetLastError())
	}
	if !win.GetClientRect(hwnd, &cr) {
		return capture.Box{}, fmt.Errorf("GetClientRect: %w", windows.GetLastError())
	}
	var origin win.POINT
	if !win.ClientToScreen(hwnd, &origin) {
		return capture.Box{}, fmt.Errorf("ClientToScreen: %w", windows.GetLastError())
	}
	return capture.WindowClientBox(rectOf(wr), rectOf(cr), capture.Point{X: origin.X, Y: origin.Y}), nil
}

// CloseSignal watches for the window's destruction. If the hook cannot be
// installed the returned signal never fires.
func (w *Window) CloseSignal() *capture.CloseSignal {
	sig, err := destroyHooks.watch(w.Handle)
	if err != nil {
		log.Warn("destroy hook failed, close detection disabled", "window", w.String(), "error", err)
		return capture.NewCloseSignal()
	}
	return sig
}

// ProcessID returns the id of the process that owns the window.
func (w *Window) ProcessID() (uint32, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(w.Handle), &pid); err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	return pid, nil
}

func (d *Display) CreateCaptureItem() (capture.CaptureItem, error) {
	item, err := createItem(vtblItemInteropCreateForMonitor, d.Handle)
	if err != nil {
		return nil, fmt.Errorf("CreateForMonitor %s: %w", d.Name, err)
	}
	return item, nil
}

func rectOf(r win.RECT) capture.Rect {
	return capture.Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
}
