package capture

import "time"

// RawFrame is a captured surface as delivered by the backend.
type RawFrame interface {
	// Texture is the backend-owned surface texture.
	Texture() Texture
	Desc() TextureDesc
	SystemRelativeTime() time.Duration
	// Close returns the surface to the frame pool.
	Close() error
}

// FrameHandler is invoked by the backend on its own goroutine/thread, one
// call at a time per frame pool. It must not block.
type FrameHandler func(RawFrame)

// FramePool is the backend frame pool together with its capture session.
type FramePool interface {
	// Recreate resizes the pool's surfaces.
	Recreate(size Size) error
	StartCapture() error
	SetCursorCaptureEnabled(enabled bool) error
	SetBorderRequired(required bool) error
	// Close closes the capture session and the frame pool.
	Close() error
}

// Backend is the OS capture API plus GPU device factory.
type Backend interface {
	OpenDevice(driver DriverType) (Device, error)
	// CreateFramePool creates a frame pool of the given size on dev, a
	// capture session for item, and subscribes onFrame to frame arrival.
	CreateFramePool(dev Device, item CaptureItem, size Size, onFrame FrameHandler) (FramePool, error)
}
