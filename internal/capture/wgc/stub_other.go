//go:build !windows

package wgc

import "github.com/wgcap/wgcap/internal/capture"

func Init() error { return capture.ErrNotSupported }

func NewBackend() (*Backend, error) { return nil, capture.ErrNotSupported }

func (*Backend) OpenDevice(capture.DriverType) (capture.Device, error) {
	return nil, capture.ErrNotSupported
}

func (*Backend) CreateFramePool(capture.Device, capture.CaptureItem, capture.Size, capture.FrameHandler) (capture.FramePool, error) {
	return nil, capture.ErrNotSupported
}

func ListWindows() ([]*Window, error)               { return nil, capture.ErrNotSupported }
func FindWindow(string) (*Window, error)            { return nil, capture.ErrNotSupported }
func WindowFromHandle(uintptr) (*Window, error)     { return nil, capture.ErrNotSupported }
func ListDisplays() ([]*Display, error)             { return nil, capture.ErrNotSupported }
func DisplayByID(int) (*Display, error)             { return nil, capture.ErrNotSupported }
func (w *Window) ProcessID() (uint32, error)        { return 0, capture.ErrNotSupported }
func (w *Window) CloseSignal() *capture.CloseSignal { return capture.NewCloseSignal() }

func (w *Window) CreateCaptureItem() (capture.CaptureItem, error) {
	return nil, capture.ErrNotSupported
}

func (w *Window) ClientRegion() (capture.Box, error) {
	return capture.Box{}, capture.ErrNotSupported
}

func (d *Display) CreateCaptureItem() (capture.CaptureItem, error) {
	return nil, capture.ErrNotSupported
}
