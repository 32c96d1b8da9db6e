package wgc

import (
	"strings"
	"testing"

	"github.com/wgcap/wgcap/internal/capture"
)

func TestDisplayClientRegion(t *testing.T) {
	d := &Display{Handle: 0x10001, Name: `\\.\DISPLAY2`, Bounds: capture.Rect{Left: 1920, Top: -120, Right: 4480, Bottom: 1320}}

	got, err := d.ClientRegion()
	if err != nil {
		t.Fatalf("ClientRegion: %v", err)
	}
	want := capture.Box{Right: 2560, Bottom: 1440, Back: 1}
	if got != want {
		t.Fatalf("ClientRegion() = %+v, want %+v", got, want)
	}
}

func TestDisplayCloseSignalNeverFires(t *testing.T) {
	d := &Display{}
	sig := d.CloseSignal()
	if sig.Fired() {
		t.Fatal("display close signal fired")
	}
	select {
	case <-sig.Done():
		t.Fatal("display close signal done channel closed")
	default:
	}
}

func TestTargetKinds(t *testing.T) {
	tests := []struct {
		target capture.Target
		want   capture.TargetKind
	}{
		{&Window{Handle: 1}, capture.KindWindow},
		{&Display{Handle: 2}, capture.KindDisplay},
	}
	for _, tt := range tests {
		if got := capture.KindOf(tt.target); got != tt.want {
			t.Errorf("KindOf(%T) = %v, want %v", tt.target, got, tt.want)
		}
		if tt.target.RawHandle() == 0 {
			t.Errorf("RawHandle(%T) = 0", tt.target)
		}
	}
}

func TestTargetStrings(t *testing.T) {
	w := &Window{Handle: 0xABC, Title: "Notepad", ClassName: "Notepad"}
	if got := w.String(); !strings.Contains(got, `"Notepad"`) || !strings.Contains(got, "0xABC") {
		t.Fatalf("Window.String() = %q", got)
	}
	d := &Display{Name: "DISPLAY1", Bounds: capture.Rect{Right: 1920, Bottom: 1080}}
	if got, want := d.String(), "DISPLAY1 1920x1080 at (0,0)"; got != want {
		t.Fatalf("Display.String() = %q, want %q", got, want)
	}
}
