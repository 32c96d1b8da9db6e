package capture

import (
	"errors"
	"fmt"
	"unsafe"
)

// DriverType selects the graphics driver a Device is created on.
type DriverType int

const (
	DriverHardware DriverType = iota + 1
	DriverWARP
)

func (d DriverType) String() string {
	switch d {
	case DriverHardware:
		return "hardware"
	case DriverWARP:
		return "warp"
	default:
		return fmt.Sprintf("driver(%d)", int(d))
	}
}

// DefaultDriverPreference tries the GPU first and the WARP software
// rasterizer second.
var DefaultDriverPreference = []DriverType{DriverHardware, DriverWARP}

// PixelFormat uses DXGI_FORMAT values.
type PixelFormat uint32

const (
	FormatUnknown       PixelFormat = 0
	FormatB8G8R8A8UNorm PixelFormat = 87
)

// BytesPerPixel returns 4 for the formats the capture backend produces.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatB8G8R8A8UNorm:
		return 4
	default:
		return 0
	}
}

// Usage uses D3D11_USAGE values.
type Usage uint32

const (
	UsageDefault Usage = 0
	UsageStaging Usage = 3
)

// CPUAccessFlags uses D3D11_CPU_ACCESS_FLAG values.
type CPUAccessFlags uint32

const CPUAccessRead CPUAccessFlags = 0x20000

// TextureDesc is the subset of D3D11_TEXTURE2D_DESC the pipeline uses.
type TextureDesc struct {
	Width     uint32
	Height    uint32
	Format    PixelFormat
	Usage     Usage
	CPUAccess CPUAccessFlags
}

// Size returns the texture extent.
func (d TextureDesc) Size() Size {
	return Size{Width: d.Width, Height: d.Height}
}

// StagingDesc builds the descriptor for a copy destination. With cpuAccess
// the texture is a CPU-readable staging resource, otherwise GPU-only.
func StagingDesc(size Size, format PixelFormat, cpuAccess bool) TextureDesc {
	d := TextureDesc{
		Width:  size.Width,
		Height: size.Height,
		Format: format,
		Usage:  UsageDefault,
	}
	if cpuAccess {
		d.Usage = UsageStaging
		d.CPUAccess = CPUAccessRead
	}
	return d
}

// Texture is a GPU-resident 2D texture.
type Texture interface {
	Desc() TextureDesc
	// Handle returns the native resource pointer (ID3D11Texture2D*).
	Handle() uintptr
	Release()
}

// Mapping is a CPU view of a mapped texture (D3D11_MAPPED_SUBRESOURCE).
type Mapping struct {
	Data       unsafe.Pointer
	RowPitch   uint32
	DepthPitch uint32
}

// Device owns the GPU device and its immediate context. It is used from the
// consumer goroutine only.
type Device interface {
	CreateTexture(desc TextureDesc) (Texture, error)
	// CopySubregion copies box out of src into dst at (0, 0).
	CopySubregion(dst, src Texture, box Box) error
	Map(tex Texture) (Mapping, error)
	Unmap(tex Texture)
	Close() error
}

// Fencer is implemented by devices that can block until all submitted GPU
// work has completed.
type Fencer interface {
	WaitIdle() error
}

// DeviceOpener creates a device on one driver type.
type DeviceOpener func(DriverType) (Device, error)

// OpenDevice walks prefs in order and returns the first device that could
// be created. Failures are only retried across prefs; when all of them fail
// the result wraps ErrDeviceCreationFailed and every attempt's error.
func OpenDevice(open DeviceOpener, prefs []DriverType) (Device, error) {
	if len(prefs) == 0 {
		prefs = DefaultDriverPreference
	}

	var errs []error
	for _, driver := range prefs {
		dev, err := open(driver)
		if err == nil {
			log.Debug("graphics device created", "driver", driver)
			return dev, nil
		}
		log.Warn("graphics device creation failed", "driver", driver, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", driver, err))
	}
	return nil, fmt.Errorf("%w: %w", ErrDeviceCreationFailed, errors.Join(errs...))
}
