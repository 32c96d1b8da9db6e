package capture

import (
	"errors"
	"sync"
	"time"
	"unsafe"
)

type fakeTexture struct {
	desc     TextureDesc
	pitch    uint32
	pix      []byte
	released bool
}

func newFakeTexture(desc TextureDesc) *fakeTexture {
	pitch := desc.Width*4 + 64
	return &fakeTexture{desc: desc, pitch: pitch, pix: make([]byte, int(pitch)*int(max(desc.Height, 1)))}
}

func (t *fakeTexture) Desc() TextureDesc { return t.desc }
func (t *fakeTexture) Handle() uintptr   { return uintptr(unsafe.Pointer(t)) }
func (t *fakeTexture) Release()          { t.released = true }

type fakeDevice struct {
	created  []*fakeTexture
	copies   []Box
	maps     int
	unmaps   int
	fences   int
	closed   bool
	createFn func(TextureDesc) error
	copyErr  error
	mapErr   error
}

func (d *fakeDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if d.createFn != nil {
		if err := d.createFn(desc); err != nil {
			return nil, err
		}
	}
	t := newFakeTexture(desc)
	d.created = append(d.created, t)
	return t, nil
}

func (d *fakeDevice) CopySubregion(dst, src Texture, box Box) error {
	if d.copyErr != nil {
		return d.copyErr
	}
	d.copies = append(d.copies, box)
	return nil
}

func (d *fakeDevice) Map(tex Texture) (Mapping, error) {
	if d.mapErr != nil {
		return Mapping{}, d.mapErr
	}
	d.maps++
	t := tex.(*fakeTexture)
	return Mapping{Data: unsafe.Pointer(&t.pix[0]), RowPitch: t.pitch}, nil
}

func (d *fakeDevice) Unmap(Texture) { d.unmaps++ }

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDevice) live() int {
	n := 0
	for _, t := range d.created {
		if !t.released {
			n++
		}
	}
	return n
}

type fencingDevice struct {
	*fakeDevice
}

func (d fencingDevice) WaitIdle() error {
	d.fences++
	return nil
}

type fakeRawFrame struct {
	tex    *fakeTexture
	ts     time.Duration
	mu     sync.Mutex
	closed int
}

func newFakeRawFrame(w, h uint32, ts time.Duration) *fakeRawFrame {
	return &fakeRawFrame{
		tex: &fakeTexture{desc: TextureDesc{Width: w, Height: h, Format: FormatB8G8R8A8UNorm}},
		ts:  ts,
	}
}

func (f *fakeRawFrame) Texture() Texture                  { return f.tex }
func (f *fakeRawFrame) Desc() TextureDesc                 { return f.tex.desc }
func (f *fakeRawFrame) SystemRelativeTime() time.Duration { return f.ts }

func (f *fakeRawFrame) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeRawFrame) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeFramePool struct {
	mu        sync.Mutex
	size      Size
	recreated []Size
	started   int
	cursor    bool
	border    bool
	borderErr error
	startErr  error
	closed    bool
	onFrame   FrameHandler
}

func (p *fakeFramePool) Recreate(size Size) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size = size
	p.recreated = append(p.recreated, size)
	return nil
}

func (p *fakeFramePool) StartCapture() error {
	if p.startErr != nil {
		return p.startErr
	}
	p.started++
	return nil
}

func (p *fakeFramePool) SetCursorCaptureEnabled(enabled bool) error {
	p.cursor = enabled
	return nil
}

func (p *fakeFramePool) SetBorderRequired(required bool) error {
	if p.borderErr != nil {
		return p.borderErr
	}
	p.border = required
	return nil
}

func (p *fakeFramePool) Close() error {
	p.closed = true
	return nil
}

// emit delivers a frame the way the backend callback would.
func (p *fakeFramePool) emit(w, h uint32) *fakeRawFrame {
	f := newFakeRawFrame(w, h, 16*time.Millisecond)
	p.onFrame(f)
	return f
}

type fakeItem struct {
	size   Size
	closed bool
}

func (i *fakeItem) Size() (Size, error) { return i.size, nil }

func (i *fakeItem) Close() error {
	i.closed = true
	return nil
}

type fakeTarget struct {
	handle    uintptr
	region    Box
	regionErr error
	item      *fakeItem
	itemErr   error
	signal    *CloseSignal
}

func newFakeTarget(w, h uint32) *fakeTarget {
	return &fakeTarget{
		handle: 0x1234,
		region: Box{Right: w, Bottom: h, Back: 1},
		item:   &fakeItem{size: Size{Width: w, Height: h}},
		signal: NewCloseSignal(),
	}
}

func (t *fakeTarget) CreateCaptureItem() (CaptureItem, error) {
	if t.itemErr != nil {
		return nil, t.itemErr
	}
	return t.item, nil
}

func (t *fakeTarget) ClientRegion() (Box, error) { return t.region, t.regionErr }
func (t *fakeTarget) CloseSignal() *CloseSignal  { return t.signal }
func (t *fakeTarget) RawHandle() uintptr         { return t.handle }
func (t *fakeTarget) Kind() TargetKind           { return KindWindow }

type fakeBackend struct {
	device  *fakeDevice
	pool    *fakeFramePool
	devErrs map[DriverType]error
	opened  []DriverType
	poolErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		device: &fakeDevice{},
		pool:   &fakeFramePool{},
	}
}

func (b *fakeBackend) OpenDevice(driver DriverType) (Device, error) {
	b.opened = append(b.opened, driver)
	if err := b.devErrs[driver]; err != nil {
		return nil, err
	}
	return b.device, nil
}

func (b *fakeBackend) CreateFramePool(dev Device, item CaptureItem, size Size, onFrame FrameHandler) (FramePool, error) {
	if b.poolErr != nil {
		return nil, b.poolErr
	}
	b.pool.size = size
	b.pool.onFrame = onFrame
	return b.pool, nil
}

var errFake = errors.New("fake failure")
