//go:build windows

package wgc

import (
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// HRESULT is a failed COM or WinRT status code.
type HRESULT uint32

func (hr HRESULT) Error() string {
	return fmt.Sprintf("HRESULT 0x%08X", uint32(hr))
}

const (
	sOK           = 0
	sFalse        = 1
	eNoInterface  = 0x80004002
	ePointer      = 0x80004003
	dxgiErrUnsupp = 0x887A0004 // DXGI_ERROR_UNSUPPORTED
)

// IUnknown vtable slots.
const (
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease        = 2
)

// comVtblFn resolves a COM vtable function pointer by index.
func comVtblFn(obj uintptr, idx int) uintptr {
	vtable := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtable + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// comCall invokes the method at vtable slot idx on obj and turns a failed
// HRESULT into an error.
func comCall(obj uintptr, idx int, args ...uintptr) error {
	ret := comCallRaw(obj, idx, args...)
	if int32(ret) < 0 {
		return fmt.Errorf("vtable[%d]: %w", idx, HRESULT(ret))
	}
	return nil
}

// comCallRaw invokes a method and returns its raw result. Used for methods
// returning void or a success code other than S_OK.
func comCallRaw(obj uintptr, idx int, args ...uintptr) uintptr {
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, obj)
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(comVtblFn(obj, idx), all...)
	return ret
}

func comRelease(obj uintptr) {
	if obj != 0 {
		comCallRaw(obj, vtblRelease)
	}
}

func comAddRef(obj uintptr) {
	if obj != 0 {
		comCallRaw(obj, vtblAddRef)
	}
}

// queryInterface returns obj's iid interface with its own reference.
func queryInterface(obj uintptr, iid *ole.GUID) (uintptr, error) {
	var out uintptr
	if err := comCall(obj, vtblQueryInterface,
		uintptr(unsafe.Pointer(iid)),
		uintptr(unsafe.Pointer(&out)),
	); err != nil {
		return 0, err
	}
	return out, nil
}

// closeClosable calls IClosable::Close on a WinRT object.
func closeClosable(obj uintptr) error {
	closable, err := queryInterface(obj, iidIClosable)
	if err != nil {
		return fmt.Errorf("query IClosable: %w", err)
	}
	defer comRelease(closable)
	return comCall(closable, vtblClosableClose)
}

// packSize passes a Windows.Graphics.SizeInt32 by value in one register.
func packSize(w, h uint32) uintptr {
	return uintptr(uint64(h)<<32 | uint64(w))
}

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
