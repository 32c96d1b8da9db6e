//go:build windows

package wgc

import (
	"errors"
	"testing"

	"golang.org/x/sys/windows"

	"github.com/wgcap/wgcap/internal/capture"
)

func TestWindowFromHandleRejectsNonWindows(t *testing.T) {
	for _, h := range []uintptr{0, 0xDEAD0} {
		if _, err := WindowFromHandle(h); !errors.Is(err, capture.ErrTargetNotFound) {
			t.Fatalf("WindowFromHandle(0x%X) err = %v, want ErrTargetNotFound", h, err)
		}
	}
}

func TestWindowFromHandleDesktop(t *testing.T) {
	desktop := windows.GetDesktopWindow()
	w, err := WindowFromHandle(uintptr(desktop))
	if err != nil {
		t.Fatalf("WindowFromHandle(desktop): %v", err)
	}
	// The desktop window class is the atom "#32769".
	if w.ClassName != "#32769" {
		t.Fatalf("ClassName = %q, want %q", w.ClassName, "#32769")
	}
}

func TestListWindowsTitlesAreReadable(t *testing.T) {
	all, err := ListWindows()
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	for _, w := range all {
		if w.Handle == 0 {
			t.Fatalf("window %q has a zero handle", w.Title)
		}
		if len(w.Title) > maxTextLen*3 {
			t.Fatalf("title length = %d, want <= %d", len(w.Title), maxTextLen*3)
		}
	}
}
