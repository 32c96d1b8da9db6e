//go:build windows

package wgc

import (
	"fmt"

	"github.com/wgcap/wgcap/internal/capture"
)

// NewBackend initializes WinRT and returns the capture backend.
func NewBackend() (*Backend, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	return &Backend{}, nil
}

func (*Backend) OpenDevice(driver capture.DriverType) (capture.Device, error) {
	dev, err := openDevice(driver)
	if err != nil && isUnsupported(err) {
		return nil, fmt.Errorf("%s driver not available: %w", driver, err)
	}
	return dev, err
}

func (*Backend) CreateFramePool(dev capture.Device, item capture.CaptureItem, size capture.Size, onFrame capture.FrameHandler) (capture.FramePool, error) {
	return createFramePool(dev, item, size, onFrame)
}
