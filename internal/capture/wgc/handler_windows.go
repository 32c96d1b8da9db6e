//go:build windows

package wgc

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// frameArrivedVtbl is the vtable of
// TypedEventHandler<Direct3D11CaptureFramePool, IInspectable>.
type frameArrivedVtbl struct {
	QueryInterface uintptr
	AddRef         uintptr
	Release        uintptr
	Invoke         uintptr
}

// frameArrivedHandler is a COM object implemented in Go. The vtable pointer
// must stay the first field.
type frameArrivedHandler struct {
	vtbl   *frameArrivedVtbl
	refs   atomic.Int32
	invoke func(sender uintptr)
}

var (
	handlerVtblOnce sync.Once
	handlerVtbl     *frameArrivedVtbl

	// liveHandlers keeps handlers reachable while native code holds them.
	liveHandlers sync.Map // uintptr -> *frameArrivedHandler
)

func newFrameArrivedHandler(invoke func(sender uintptr)) *frameArrivedHandler {
	handlerVtblOnce.Do(func() {
		handlerVtbl = &frameArrivedVtbl{
			QueryInterface: syscall.NewCallback(handlerQueryInterface),
			AddRef:         syscall.NewCallback(handlerAddRef),
			Release:        syscall.NewCallback(handlerRelease),
			Invoke:         syscall.NewCallback(handlerInvoke),
		}
	})
	h := &frameArrivedHandler{vtbl: handlerVtbl, invoke: invoke}
	h.refs.Store(1)
	liveHandlers.Store(h.ptr(), h)
	return h
}

func (h *frameArrivedHandler) ptr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

func lookupHandler(this uintptr) *frameArrivedHandler {
	v, ok := liveHandlers.Load(this)
	if !ok {
		return nil
	}
	return v.(*frameArrivedHandler)
}

func handlerQueryInterface(this, riid, ppv uintptr) uintptr {
	if ppv == 0 {
		return ePointer
	}
	iid := (*ole.GUID)(unsafe.Pointer(riid))
	out := (*uintptr)(unsafe.Pointer(ppv))
	switch {
	case ole.IsEqualGUID(iid, ole.IID_IUnknown),
		ole.IsEqualGUID(iid, iidIAgileObject),
		ole.IsEqualGUID(iid, iidFrameArrivedHandler):
		*out = this
		handlerAddRef(this)
		return sOK
	default:
		*out = 0
		return eNoInterface
	}
}

func handlerAddRef(this uintptr) uintptr {
	if h := lookupHandler(this); h != nil {
		return uintptr(h.refs.Add(1))
	}
	return 0
}

func handlerRelease(this uintptr) uintptr {
	h := lookupHandler(this)
	if h == nil {
		return 0
	}
	n := h.refs.Add(-1)
	if n == 0 {
		liveHandlers.Delete(this)
	}
	return uintptr(n)
}

func handlerInvoke(this, sender, args uintptr) uintptr {
	if h := lookupHandler(this); h != nil {
		h.invoke(sender)
	}
	return sOK
}
