//go:build windows

package wgc

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

const (
	classFramePool   = "Windows.Graphics.Capture.Direct3D11CaptureFramePool"
	classCaptureItem = "Windows.Graphics.Capture.GraphicsCaptureItem"

	roInitMultithreaded = 1
	rpcEChangedMode     = 0x80010106

	// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2
	dpiAwarenessPerMonitorV2 = ^uintptr(3)
)

var (
	iidIClosable                   = ole.NewGUID("{30D5A829-7FA4-4026-83BB-D75BAE4EA99E}")
	iidIGraphicsCaptureItem        = ole.NewGUID("{79C3F95B-31F7-4EC2-A464-632EF5D30760}")
	iidIGraphicsCaptureItemInterop = ole.NewGUID("{3628E81B-3CAC-4C60-B7F4-23CE0E0C3356}")
	iidIFramePoolStatics2          = ole.NewGUID("{589B103F-6BBC-5DF5-A991-02E28B3B66D5}")
	iidIGraphicsCaptureSession2    = ole.NewGUID("{2C39AE40-7D2E-5044-804E-8B6799D4CF9E}")
	iidIGraphicsCaptureSession3    = ole.NewGUID("{F2CDD966-22AE-5EA1-9596-3A289344C3BE}")
	iidIDirect3DDevice             = ole.NewGUID("{A37624AB-8D5F-4650-9D3E-9EAE3D9BC670}")
	iidIDxgiInterfaceAccess        = ole.NewGUID("{A9B3D012-3DF2-4EE3-B8D1-8695F457D3C1}")
	iidIAgileObject                = ole.NewGUID("{94EA2B94-E9CC-49E0-C0FF-EE64CA8F5B90}")
	iidFrameArrivedHandler         = ole.NewGUID("{51A947F7-79CF-5A3E-A3A5-1289CFA6DFE8}")
)

// WinRT vtable slots. IInspectable occupies 0..5.
const (
	vtblClosableClose = 6

	vtblItemInteropCreateForWindow  = 3
	vtblItemInteropCreateForMonitor = 4
	vtblItemGetSize                 = 7

	vtblStaticsCreateFreeThreaded = 6

	vtblPoolRecreate             = 6
	vtblPoolTryGetNextFrame      = 7
	vtblPoolAddFrameArrived      = 8
	vtblPoolRemoveFrameArrived   = 9
	vtblPoolCreateCaptureSession = 10

	vtblSessionStartCapture            = 6
	vtblSessionPutCursorCaptureEnabled = 7
	vtblSessionPutBorderRequired       = 7

	vtblFrameGetSurface            = 6
	vtblFrameGetSystemRelativeTime = 7

	vtblDxgiAccessGetInterface = 3
)

var (
	user32                            = windows.NewLazySystemDLL("user32.dll")
	procSetProcessDpiAwarenessContext = user32.NewProc("SetProcessDpiAwarenessContext")

	initOnce sync.Once
	initErr  error

	factories struct {
		once         sync.Once
		err          error
		itemInterop  uintptr
		poolStatics2 uintptr
	}
)

// Init joins the WinRT multithreaded apartment and makes the process
// per-monitor DPI aware so window and monitor rectangles are in physical
// pixels. It runs once; later calls return the first result.
func Init() error {
	initOnce.Do(func() {
		if err := ole.RoInitialize(roInitMultithreaded); err != nil {
			var oleErr *ole.OleError
			// S_FALSE means already initialized; a different apartment on
			// this thread still leaves the process MTA usable.
			if !errors.As(err, &oleErr) || (oleErr.Code() != sFalse && oleErr.Code() != rpcEChangedMode) {
				initErr = fmt.Errorf("RoInitialize: %w", err)
				return
			}
		}
		if err := procSetProcessDpiAwarenessContext.Find(); err == nil {
			if r, _, callErr := procSetProcessDpiAwarenessContext.Call(dpiAwarenessPerMonitorV2); r == 0 {
				log.Debug("SetProcessDpiAwarenessContext failed", "error", callErr)
			}
		}
	})
	return initErr
}

// activationFactories returns the process-wide capture factories,
// activating them on first use.
func activationFactories() (itemInterop, poolStatics2 uintptr, err error) {
	if err := Init(); err != nil {
		return 0, 0, err
	}
	factories.once.Do(func() {
		interop, err := ole.RoGetActivationFactory(classCaptureItem, iidIGraphicsCaptureItemInterop)
		if err != nil {
			factories.err = fmt.Errorf("activate %s: %w", classCaptureItem, err)
			return
		}
		statics, err := ole.RoGetActivationFactory(classFramePool, iidIFramePoolStatics2)
		if err != nil {
			interop.Release()
			factories.err = fmt.Errorf("activate %s: %w", classFramePool, err)
			return
		}
		factories.itemInterop = uintptr(unsafe.Pointer(interop))
		factories.poolStatics2 = uintptr(unsafe.Pointer(statics))
	})
	return factories.itemInterop, factories.poolStatics2, factories.err
}
