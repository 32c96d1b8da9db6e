package capture

import (
	"errors"
	"strings"
	"testing"
)

func TestOpenDeviceFallsBackToWARP(t *testing.T) {
	b := newFakeBackend()
	b.devErrs = map[DriverType]error{DriverHardware: errFake}

	dev, err := OpenDevice(b.OpenDevice, nil)
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	if dev != b.device {
		t.Fatal("OpenDevice returned an unexpected device")
	}
	if len(b.opened) != 2 || b.opened[0] != DriverHardware || b.opened[1] != DriverWARP {
		t.Fatalf("opened = %v, want [hardware warp]", b.opened)
	}
}

func TestOpenDeviceStopsAtFirstSuccess(t *testing.T) {
	b := newFakeBackend()
	if _, err := OpenDevice(b.OpenDevice, DefaultDriverPreference); err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	if len(b.opened) != 1 {
		t.Fatalf("opened = %v, want only hardware", b.opened)
	}
}

func TestOpenDeviceAllFail(t *testing.T) {
	b := newFakeBackend()
	warpErr := errors.New("warp unavailable")
	b.devErrs = map[DriverType]error{DriverHardware: errFake, DriverWARP: warpErr}

	_, err := OpenDevice(b.OpenDevice, nil)
	if !errors.Is(err, ErrDeviceCreationFailed) {
		t.Fatalf("err = %v, want ErrDeviceCreationFailed", err)
	}
	if !errors.Is(err, errFake) || !errors.Is(err, warpErr) {
		t.Fatalf("err = %v, want every attempt wrapped", err)
	}
	if !strings.Contains(err.Error(), "warp") {
		t.Fatalf("err = %q, want driver names in message", err)
	}
}

func TestStagingDesc(t *testing.T) {
	size := Size{Width: 640, Height: 480}

	cpu := StagingDesc(size, FormatB8G8R8A8UNorm, true)
	if cpu.Usage != UsageStaging || cpu.CPUAccess != CPUAccessRead {
		t.Fatalf("cpu desc = %+v, want staging usage with read access", cpu)
	}

	gpu := StagingDesc(size, FormatB8G8R8A8UNorm, false)
	if gpu.Usage != UsageDefault || gpu.CPUAccess != 0 {
		t.Fatalf("gpu desc = %+v, want default usage without cpu access", gpu)
	}
	if gpu.Size() != size {
		t.Fatalf("Size() = %v, want %v", gpu.Size(), size)
	}
}
