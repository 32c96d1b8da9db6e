package capture

// Options configures a capture session.
type Options struct {
	// CursorCapture includes the mouse cursor in captured frames.
	CursorCapture bool
	// BorderRequired keeps the yellow capture border drawn by the OS.
	BorderRequired bool
	// CPUAccess maps every frame into CPU-readable memory. Without it frames
	// only carry a GPU texture.
	CPUAccess bool
	// FenceBeforeMap waits for the GPU to go idle before mapping the staging
	// texture. Off by default: the copy is assumed complete at map time.
	FenceBeforeMap bool
	// QueueCapacity bounds the pending frame queue. Zero means
	// DefaultQueueCapacity.
	QueueCapacity int
	// DriverPreference is the device creation order. Empty means
	// DefaultDriverPreference.
	DriverPreference []DriverType
}

// DefaultOptions returns cursor off, border on, CPU access on.
func DefaultOptions() Options {
	return Options{
		CursorCapture:  false,
		BorderRequired: true,
		CPUAccess:      true,
		QueueCapacity:  DefaultQueueCapacity,
	}
}

func (o Options) withDefaults() Options {
	if o.QueueCapacity < 1 {
		o.QueueCapacity = DefaultQueueCapacity
	}
	if len(o.DriverPreference) == 0 {
		o.DriverPreference = DefaultDriverPreference
	}
	return o
}
