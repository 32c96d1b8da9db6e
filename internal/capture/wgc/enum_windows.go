//go:build windows

package wgc

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"github.com/wgcap/wgcap/internal/capture"
)

var (
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	dwmapi   = windows.NewLazySystemDLL("dwmapi.dll")

	procGetConsoleWindow      = kernel32.NewProc("GetConsoleWindow")
	procDwmGetWindowAttribute = dwmapi.NewProc("DwmGetWindowAttribute")
	procEnumDisplayMonitors   = user32.NewProc("EnumDisplayMonitors")
	procGetWindowTextW        = user32.NewProc("GetWindowTextW")
)

const (
	dwmwaCloaked = 14
	maxTextLen   = 512
)

// Enumeration callbacks are created once; each NewCallback slot is
// permanent.
var (
	enumWindowsProc = windows.NewCallback(func(hwnd, lparam uintptr) uintptr {
		list := (*[]uintptr)(unsafe.Pointer(lparam))
		*list = append(*list, hwnd)
		return 1
	})
	enumMonitorsProc = windows.NewCallback(func(hmonitor, hdc, rect, lparam uintptr) uintptr {
		list := (*[]uintptr)(unsafe.Pointer(lparam))
		*list = append(*list, hmonitor)
		return 1
	})
)

// monitorInfoEx matches MONITORINFOEXW.
type monitorInfoEx struct {
	win.MONITORINFO
	DeviceName [win.CCHDEVICENAME]uint16
}

func windowText(hwnd windows.HWND) string {
	buf := make([]uint16, maxTextLen)
	n, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func className(hwnd windows.HWND) string {
	buf := make([]uint16, maxTextLen)
	n, _ := windows.GetClassName(hwnd, &buf[0], int32(len(buf)))
	return windows.UTF16ToString(buf[:n])
}

func attributesOf(hwnd windows.HWND) capture.WindowAttributes {
	h := win.HWND(hwnd)
	console, _, _ := procGetConsoleWindow.Call()
	return capture.WindowAttributes{
		Title:     windowText(hwnd),
		ClassName: className(hwnd),
		Visible:   win.IsWindowVisible(h),
		Shell:     hwnd == windows.GetShellWindow(),
		Console:   uintptr(hwnd) == console,
		TopLevel:  win.GetAncestor(h, win.GA_ROOT) == h,
		Style:     uint32(win.GetWindowLong(h, win.GWL_STYLE)),
		ExStyle:   uint32(win.GetWindowLong(h, win.GWL_EXSTYLE)),
	}
}

func cloakQuery(hwnd windows.HWND) capture.CloakQuery {
	return func() (uint32, bool) {
		var cloaked uint32
		hr, _, _ := procDwmGetWindowAttribute.Call(
			uintptr(hwnd),
			dwmwaCloaked,
			uintptr(unsafe.Pointer(&cloaked)),
			unsafe.Sizeof(cloaked),
		)
		return cloaked, int32(hr) >= 0
	}
}

// ListWindows returns every top-level window that can be captured, in
// z-order.
func ListWindows() ([]*Window, error) {
	var handles []uintptr
	if err := windows.EnumWindows(enumWindowsProc, unsafe.Pointer(&handles)); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}

	windowsOut := make([]*Window, 0, len(handles))
	for _, h := range handles {
		hwnd := windows.HWND(h)
		attrs := attributesOf(hwnd)
		if !capture.IsCapturable(attrs, cloakQuery(hwnd)) {
			continue
		}
		windowsOut = append(windowsOut, &Window{Handle: h, Title: attrs.Title, ClassName: attrs.ClassName})
	}
	return windowsOut, nil
}

// FindWindow returns the first capturable window whose title contains name,
// ignoring case.
func FindWindow(name string) (*Window, error) {
	all, err := ListWindows()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	for _, w := range all {
		if strings.Contains(strings.ToLower(w.Title), needle) {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: no window title contains %q", capture.ErrTargetNotFound, name)
}

// WindowFromHandle wraps an existing HWND without applying the
// capturability filter.
func WindowFromHandle(handle uintptr) (*Window, error) {
	hwnd := windows.HWND(handle)
	if handle == 0 || !windows.IsWindow(hwnd) {
		return nil, fmt.Errorf("%w: 0x%X is not a window", capture.ErrTargetNotFound, handle)
	}
	return &Window{Handle: handle, Title: windowText(hwnd), ClassName: className(hwnd)}, nil
}

// ListDisplays returns the monitors in enumeration order.
func ListDisplays() ([]*Display, error) {
	var handles []uintptr
	if r, _, err := procEnumDisplayMonitors.Call(0, 0, enumMonitorsProc, uintptr(unsafe.Pointer(&handles))); r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	displays := make([]*Display, 0, len(handles))
	for _, h := range handles {
		var info monitorInfoEx
		info.CbSize = uint32(unsafe.Sizeof(info))
		if !win.GetMonitorInfo(win.HMONITOR(h), &info.MONITORINFO) {
			log.Debug("GetMonitorInfo failed, skipping monitor", "handle", h)
			continue
		}
		displays = append(displays, &Display{
			Handle: h,
			Name:   windows.UTF16ToString(info.DeviceName[:]),
			Bounds: rectOf(info.RcMonitor),
		})
	}
	return displays, nil
}

// DisplayByID returns the id-th monitor of ListDisplays.
func DisplayByID(id int) (*Display, error) {
	displays, err := ListDisplays()
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= len(displays) {
		return nil, fmt.Errorf("%w: display %d out of range (%d displays)", capture.ErrTargetNotFound, id, len(displays))
	}
	return displays[id], nil
}
