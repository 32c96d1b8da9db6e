//go:build windows

package wgc

import (
	"errors"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"

	"github.com/wgcap/wgcap/internal/capture"
)

var (
	d3d11DLL = windows.NewLazySystemDLL("d3d11.dll")

	procD3D11CreateDevice                    = d3d11DLL.NewProc("D3D11CreateDevice")
	procCreateDirect3D11DeviceFromDXGIDevice = d3d11DLL.NewProc("CreateDirect3D11DeviceFromDXGIDevice")
)

const (
	d3dDriverTypeHardware = 1
	d3dDriverTypeWARP     = 5
	d3d11SDKVersion       = 7

	d3d11CreateDeviceBGRASupport = 0x20

	d3d11MapRead    = 1
	d3d11QueryEvent = 0
	fenceMaxWait    = 2 * time.Second

	// ID3D11Device
	vtblDeviceCreateTexture2D = 5
	vtblDeviceCreateQuery     = 24

	// ID3D11DeviceContext
	vtblCtxMap                   = 14
	vtblCtxUnmap                 = 15
	vtblCtxEnd                   = 28
	vtblCtxGetData               = 29
	vtblCtxCopySubresourceRegion = 46
	vtblCtxFlush                 = 111

	// ID3D11Texture2D
	vtblTextureGetDesc = 10
)

var (
	iidIDXGIDevice     = ole.NewGUID("{54EC77FA-1377-44E6-8C32-88FD5F44C84C}")
	iidID3D11Texture2D = ole.NewGUID("{6F15AAF2-D208-4E89-9AB4-489535D34F9C}")
)

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC.
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

func (d d3d11Texture2DDesc) toCapture() capture.TextureDesc {
	return capture.TextureDesc{
		Width:     d.Width,
		Height:    d.Height,
		Format:    capture.PixelFormat(d.Format),
		Usage:     capture.Usage(d.Usage),
		CPUAccess: capture.CPUAccessFlags(d.CPUAccessFlags),
	}
}

// d3d11MappedSubresource matches D3D11_MAPPED_SUBRESOURCE.
type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

// d3d11QueryDesc matches D3D11_QUERY_DESC.
type d3d11QueryDesc struct {
	Query     uint32
	MiscFlags uint32
}

// texture is an ID3D11Texture2D reference.
type texture struct {
	ptr  uintptr
	desc capture.TextureDesc
}

func newTexture(ptr uintptr) *texture {
	var desc d3d11Texture2DDesc
	comCallRaw(ptr, vtblTextureGetDesc, uintptr(unsafe.Pointer(&desc)))
	return &texture{ptr: ptr, desc: desc.toCapture()}
}

func (t *texture) Desc() capture.TextureDesc { return t.desc }
func (t *texture) Handle() uintptr           { return t.ptr }

func (t *texture) Release() {
	comRelease(t.ptr)
	t.ptr = 0
}

// device is a D3D11 device, its immediate context, and the WinRT
// IDirect3DDevice wrapper the frame pool needs.
type device struct {
	driver capture.DriverType
	d3d    uintptr // ID3D11Device
	ctx    uintptr // ID3D11DeviceContext
	winrt  uintptr // IDirect3DDevice
	query  uintptr // ID3D11Query, created on first WaitIdle
}

var _ capture.Fencer = (*device)(nil)

func driverTypeOf(d capture.DriverType) (uintptr, error) {
	switch d {
	case capture.DriverHardware:
		return d3dDriverTypeHardware, nil
	case capture.DriverWARP:
		return d3dDriverTypeWARP, nil
	default:
		return 0, fmt.Errorf("unknown driver type %v", d)
	}
}

func openDevice(driver capture.DriverType) (capture.Device, error) {
	driverType, err := driverTypeOf(driver)
	if err != nil {
		return nil, err
	}

	dev := &device{driver: driver}
	hr, _, _ := procD3D11CreateDevice.Call(
		0,          // default adapter
		driverType, // DriverType
		0,          // Software
		d3d11CreateDeviceBGRASupport,
		0, // default feature levels
		0,
		d3d11SDKVersion,
		uintptr(unsafe.Pointer(&dev.d3d)),
		0,
		uintptr(unsafe.Pointer(&dev.ctx)),
	)
	if int32(hr) < 0 {
		return nil, fmt.Errorf("D3D11CreateDevice: %w", HRESULT(hr))
	}

	if err := dev.wrapWinRT(); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}

func (d *device) wrapWinRT() error {
	dxgiDevice, err := queryInterface(d.d3d, iidIDXGIDevice)
	if err != nil {
		return fmt.Errorf("query IDXGIDevice: %w", err)
	}
	defer comRelease(dxgiDevice)

	var inspectable uintptr
	hr, _, _ := procCreateDirect3D11DeviceFromDXGIDevice.Call(dxgiDevice, uintptr(unsafe.Pointer(&inspectable)))
	if int32(hr) < 0 {
		return fmt.Errorf("CreateDirect3D11DeviceFromDXGIDevice: %w", HRESULT(hr))
	}
	defer comRelease(inspectable)

	d.winrt, err = queryInterface(inspectable, iidIDirect3DDevice)
	if err != nil {
		return fmt.Errorf("query IDirect3DDevice: %w", err)
	}
	return nil
}

func (d *device) CreateTexture(desc capture.TextureDesc) (capture.Texture, error) {
	native := d3d11Texture2DDesc{
		Width:          desc.Width,
		Height:         desc.Height,
		MipLevels:      1,
		ArraySize:      1,
		Format:         uint32(desc.Format),
		SampleCount:    1,
		Usage:          uint32(desc.Usage),
		CPUAccessFlags: uint32(desc.CPUAccess),
	}
	var ptr uintptr
	if err := comCall(d.d3d, vtblDeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&native)),
		0, // pInitialData
		uintptr(unsafe.Pointer(&ptr)),
	); err != nil {
		return nil, fmt.Errorf("CreateTexture2D %dx%d: %w", desc.Width, desc.Height, err)
	}
	return &texture{ptr: ptr, desc: desc}, nil
}

func (d *device) CopySubregion(dst, src capture.Texture, box capture.Box) error {
	if dst.Handle() == 0 || src.Handle() == 0 {
		return errors.New("CopySubresourceRegion: released texture")
	}
	comCallRaw(d.ctx, vtblCtxCopySubresourceRegion,
		dst.Handle(),
		0, 0, 0, 0, // DstSubresource, DstX, DstY, DstZ
		src.Handle(),
		0, // SrcSubresource
		uintptr(unsafe.Pointer(&box)),
	)
	return nil
}

func (d *device) Map(tex capture.Texture) (capture.Mapping, error) {
	var m d3d11MappedSubresource
	if err := comCall(d.ctx, vtblCtxMap,
		tex.Handle(),
		0, // Subresource
		d3d11MapRead,
		0, // MapFlags
		uintptr(unsafe.Pointer(&m)),
	); err != nil {
		return capture.Mapping{}, fmt.Errorf("Map: %w", err)
	}
	return capture.Mapping{
		Data:       unsafe.Pointer(m.PData),
		RowPitch:   m.RowPitch,
		DepthPitch: m.DepthPitch,
	}, nil
}

func (d *device) Unmap(tex capture.Texture) {
	comCallRaw(d.ctx, vtblCtxUnmap, tex.Handle(), 0)
}

// WaitIdle issues an event query and spins until the GPU reaches it.
func (d *device) WaitIdle() error {
	if d.query == 0 {
		desc := d3d11QueryDesc{Query: d3d11QueryEvent}
		if err := comCall(d.d3d, vtblDeviceCreateQuery,
			uintptr(unsafe.Pointer(&desc)),
			uintptr(unsafe.Pointer(&d.query)),
		); err != nil {
			return fmt.Errorf("CreateQuery: %w", err)
		}
	}

	comCallRaw(d.ctx, vtblCtxEnd, d.query)
	comCallRaw(d.ctx, vtblCtxFlush)

	deadline := time.Now().Add(fenceMaxWait)
	var done int32
	for {
		hr := comCallRaw(d.ctx, vtblCtxGetData,
			d.query,
			uintptr(unsafe.Pointer(&done)),
			unsafe.Sizeof(done),
			0,
		)
		switch {
		case int32(hr) < 0:
			return fmt.Errorf("GetData: %w", HRESULT(hr))
		case hr == sOK && done != 0:
			return nil
		case time.Now().After(deadline):
			return fmt.Errorf("GPU fence not reached after %v", fenceMaxWait)
		}
		runtime.Gosched()
	}
}

func (d *device) Close() error {
	comRelease(d.query)
	comRelease(d.winrt)
	comRelease(d.ctx)
	comRelease(d.d3d)
	d.query, d.winrt, d.ctx, d.d3d = 0, 0, 0, 0
	return nil
}

// isUnsupported reports whether err is DXGI_ERROR_UNSUPPORTED, the usual
// result of asking for a driver type the machine lacks.
func isUnsupported(err error) bool {
	var hr HRESULT
	return errors.As(err, &hr) && hr == dxgiErrUnsupp
}
