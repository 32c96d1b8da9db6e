package capture

import (
	"errors"
	"testing"
)

func newTestStaging(dev Device, target *fakeTarget, opts Options) (*StagingBuffer, *fakeFramePool, *Metrics) {
	pool := &fakeFramePool{}
	m := newMetrics()
	return newStagingBuffer(dev, target, pool, opts, m, log), pool, m
}

func TestStagingCopiesClientRegion(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(816, 639)
	target.region = Box{Left: 1, Top: 31, Right: 801, Bottom: 631, Back: 1}
	b, pool, _ := newTestStaging(dev, target, DefaultOptions())

	f, err := b.Stage(newFakeRawFrame(816, 639, 0))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if f.Width() != 800 || f.Height() != 600 {
		t.Fatalf("frame = %dx%d, want 800x600", f.Width(), f.Height())
	}
	if len(dev.copies) != 1 || dev.copies[0] != target.region {
		t.Fatalf("copies = %v, want [%v]", dev.copies, target.region)
	}
	if len(pool.recreated) != 1 || pool.recreated[0] != (Size{Width: 816, Height: 639}) {
		t.Fatalf("recreated = %v, want [816x639]", pool.recreated)
	}
	if dev.maps != 1 || dev.unmaps != 1 {
		t.Fatalf("maps/unmaps = %d/%d, want 1/1", dev.maps, dev.unmaps)
	}
	if !f.Mapped() || f.RowPitch() < f.Width()*4 {
		t.Fatalf("mapped = %v pitch = %d, want mapped with pitch >= %d", f.Mapped(), f.RowPitch(), f.Width()*4)
	}
}

func TestStagingCopiesEveryFrameButAllocatesOnce(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(640, 480)
	b, _, m := newTestStaging(dev, target, DefaultOptions())

	for i := 0; i < 3; i++ {
		if _, err := b.Stage(newFakeRawFrame(640, 480, 0)); err != nil {
			t.Fatalf("Stage %d: %v", i, err)
		}
	}
	if len(dev.created) != 1 {
		t.Fatalf("textures created = %d, want 1", len(dev.created))
	}
	if len(dev.copies) != 3 {
		t.Fatalf("copies = %d, want 3", len(dev.copies))
	}
	if got := m.Snapshot().Reallocations; got != 1 {
		t.Fatalf("Reallocations = %d, want 1", got)
	}
}

func TestStagingResizeReleasesPreviousTexture(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(800, 600)
	b, _, _ := newTestStaging(dev, target, DefaultOptions())

	if _, err := b.Stage(newFakeRawFrame(800, 600, 0)); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	target.region = Box{Right: 1024, Bottom: 768, Back: 1}
	if _, err := b.Stage(newFakeRawFrame(1024, 768, 0)); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if dev.live() != 1 {
		t.Fatalf("live textures = %d, want 1", dev.live())
	}

	b.Release()
	b.Release()
	if dev.live() != 0 {
		t.Fatalf("live textures after Release = %d, want 0", dev.live())
	}
}

func TestStagingGPUOnly(t *testing.T) {
	dev := &fakeDevice{}
	opts := DefaultOptions()
	opts.CPUAccess = false
	b, _, _ := newTestStaging(dev, newFakeTarget(320, 200), opts)

	f, err := b.Stage(newFakeRawFrame(320, 200, 0))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if f.Mapped() || f.Bytes() != nil {
		t.Fatal("GPU-only frame should not be mapped")
	}
	if dev.maps != 0 {
		t.Fatalf("maps = %d, want 0", dev.maps)
	}
	if desc := dev.created[0].desc; desc.Usage != UsageDefault || desc.CPUAccess != 0 {
		t.Fatalf("texture desc = %+v, want default usage", desc)
	}
	if f.Texture() != Texture(dev.created[0]) {
		t.Fatal("frame should alias the staging texture")
	}
}

func TestStagingClipsRegionToSurface(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(800, 600)
	target.region = Box{Left: 1, Top: 31, Right: 900, Bottom: 700, Back: 1}
	b, _, _ := newTestStaging(dev, target, DefaultOptions())

	f, err := b.Stage(newFakeRawFrame(800, 600, 0))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if f.Width() != 799 || f.Height() != 569 {
		t.Fatalf("frame = %dx%d, want 799x569", f.Width(), f.Height())
	}
}

func TestStagingEmptyRegion(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(800, 600)
	target.region = Box{Left: 1, Right: 1, Back: 1}
	b, _, _ := newTestStaging(dev, target, DefaultOptions())

	if _, err := b.Stage(newFakeRawFrame(800, 600, 0)); !errors.Is(err, ErrEmptyRegion) {
		t.Fatalf("err = %v, want ErrEmptyRegion", err)
	}
	if len(dev.created) != 0 {
		t.Fatal("no texture should be allocated for an empty region")
	}
}

func TestStagingEmptyRegionRecreatesPoolOncePerSize(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(800, 600)
	b, pool, _ := newTestStaging(dev, target, DefaultOptions())

	if _, err := b.Stage(newFakeRawFrame(800, 600, 0)); err != nil {
		t.Fatalf("Stage: %v", err)
	}

	// Minimized: the surface shrinks to a title bar and the client area vanishes.
	target.region = Box{Back: 1}
	for i := 0; i < 5; i++ {
		if _, err := b.Stage(newFakeRawFrame(160, 28, 0)); !errors.Is(err, ErrEmptyRegion) {
			t.Fatalf("Stage %d: err = %v, want ErrEmptyRegion", i, err)
		}
	}
	if got := len(pool.recreated); got != 2 {
		t.Fatalf("pool recreations = %d, want 2", got)
	}
	if dev.live() != 0 {
		t.Fatalf("live textures = %d, want 0", dev.live())
	}

	// Restored.
	target.region = Box{Right: 800, Bottom: 600, Back: 1}
	f, err := b.Stage(newFakeRawFrame(800, 600, 0))
	if err != nil {
		t.Fatalf("Stage after restore: %v", err)
	}
	if f.Width() != 800 || f.Height() != 600 {
		t.Fatalf("frame = %dx%d, want 800x600", f.Width(), f.Height())
	}
	if got := len(pool.recreated); got != 3 {
		t.Fatalf("pool recreations = %d, want 3", got)
	}
}

func TestStagingEmptyFirstFrameDoesNotChurn(t *testing.T) {
	dev := &fakeDevice{}
	target := newFakeTarget(800, 600)
	target.region = Box{Back: 1}
	b, pool, _ := newTestStaging(dev, target, DefaultOptions())

	for i := 0; i < 3; i++ {
		if _, err := b.Stage(newFakeRawFrame(800, 600, 0)); !errors.Is(err, ErrEmptyRegion) {
			t.Fatalf("Stage %d: err = %v, want ErrEmptyRegion", i, err)
		}
	}
	if got := len(pool.recreated); got != 1 {
		t.Fatalf("pool recreations = %d, want 1", got)
	}
}

func TestStagingAllocationFailureIsResourceExhausted(t *testing.T) {
	dev := &fakeDevice{createFn: func(TextureDesc) error { return errFake }}
	b, _, _ := newTestStaging(dev, newFakeTarget(800, 600), DefaultOptions())

	_, err := b.Stage(newFakeRawFrame(800, 600, 0))
	if !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Op != "create staging texture" {
		t.Fatalf("err = %v, want BackendError for create staging texture", err)
	}
}

func TestStagingFenceBeforeMap(t *testing.T) {
	dev := fencingDevice{&fakeDevice{}}
	opts := DefaultOptions()
	opts.FenceBeforeMap = true
	b, _, _ := newTestStaging(dev, newFakeTarget(64, 64), opts)

	if _, err := b.Stage(newFakeRawFrame(64, 64, 0)); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if dev.fences != 1 {
		t.Fatalf("fences = %d, want 1", dev.fences)
	}

	opts.FenceBeforeMap = false
	b, _, _ = newTestStaging(dev, newFakeTarget(64, 64), opts)
	if _, err := b.Stage(newFakeRawFrame(64, 64, 0)); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if dev.fences != 1 {
		t.Fatalf("fences = %d, want no fence when disabled", dev.fences)
	}
}

func TestStagingMapFailure(t *testing.T) {
	dev := &fakeDevice{mapErr: errFake}
	b, _, _ := newTestStaging(dev, newFakeTarget(64, 64), DefaultOptions())

	_, err := b.Stage(newFakeRawFrame(64, 64, 0))
	if !errors.Is(err, errFake) || errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("err = %v, want wrapped map failure", err)
	}
}
