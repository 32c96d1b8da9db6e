package capture

// CaptureItem is the backend capture primitive bound to a target.
type CaptureItem interface {
	// Size reports the item's current content size.
	Size() (Size, error)
	Close() error
}

// Target is a capturable source: an application window or a display.
//
// Window and display targets live in the platform backend; the pipeline
// only needs these four operations.
type Target interface {
	// CreateCaptureItem binds the backend capture primitive to the target.
	CreateCaptureItem() (CaptureItem, error)

	// ClientRegion returns the rectangle, in the captured surface's
	// coordinates, that is copied into the staging texture.
	ClientRegion() (Box, error)

	// CloseSignal returns a one-shot signal fired when the target is
	// destroyed.
	CloseSignal() *CloseSignal

	// RawHandle returns the native handle (HWND or HMONITOR).
	RawHandle() uintptr
}

// TargetKind distinguishes the two target variants.
type TargetKind int

const (
	KindUnknown TargetKind = iota
	KindWindow
	KindDisplay
)

func (k TargetKind) String() string {
	switch k {
	case KindWindow:
		return "window"
	case KindDisplay:
		return "display"
	default:
		return "unknown"
	}
}

type kinded interface {
	Kind() TargetKind
}

// KindOf reports the variant of t, or KindUnknown.
func KindOf(t Target) TargetKind {
	if k, ok := t.(kinded); ok {
		return k.Kind()
	}
	return KindUnknown
}

// TargetRef is the consumer-facing view of a session's target.
type TargetRef struct {
	Kind      TargetKind
	RawHandle uintptr
	Region    Box
}
