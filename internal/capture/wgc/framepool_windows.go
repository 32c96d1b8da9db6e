//go:build windows

package wgc

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/wgcap/wgcap/internal/capture"
)

const (
	pixelFormatB8G8R8A8 = 87 // DirectXPixelFormat.B8G8R8A8UIntNormalized
	framePoolBuffers    = 1
)

// framePool is a free-threaded Direct3D11CaptureFramePool together with
// the GraphicsCaptureSession created from it.
type framePool struct {
	device  uintptr // IDirect3DDevice, owned by the session's device
	pool    uintptr // IDirect3D11CaptureFramePool
	session uintptr // IGraphicsCaptureSession
	handler *frameArrivedHandler
	token   int64 // EventRegistrationToken

	closeOnce sync.Once
}

func createFramePool(dev capture.Device, item capture.CaptureItem, size capture.Size, onFrame capture.FrameHandler) (capture.FramePool, error) {
	d, ok := dev.(*device)
	if !ok {
		return nil, fmt.Errorf("frame pool needs a d3d11 device, got %T", dev)
	}
	it, ok := item.(*captureItem)
	if !ok {
		return nil, fmt.Errorf("frame pool needs a graphics capture item, got %T", item)
	}
	_, statics, err := activationFactories()
	if err != nil {
		return nil, err
	}

	p := &framePool{device: d.winrt}
	if err := comCall(statics, vtblStaticsCreateFreeThreaded,
		d.winrt,
		pixelFormatB8G8R8A8,
		framePoolBuffers,
		packSize(size.Width, size.Height),
		uintptr(unsafe.Pointer(&p.pool)),
	); err != nil {
		return nil, fmt.Errorf("CreateFreeThreaded: %w", err)
	}

	p.handler = newFrameArrivedHandler(func(sender uintptr) {
		p.drain(sender, onFrame)
	})
	if err := comCall(p.pool, vtblPoolAddFrameArrived,
		p.handler.ptr(),
		uintptr(unsafe.Pointer(&p.token)),
	); err != nil {
		handlerRelease(p.handler.ptr())
		p.handler = nil
		p.Close()
		return nil, fmt.Errorf("add_FrameArrived: %w", err)
	}

	if err := comCall(p.pool, vtblPoolCreateCaptureSession,
		it.ptr,
		uintptr(unsafe.Pointer(&p.session)),
	); err != nil {
		p.Close()
		return nil, fmt.Errorf("CreateCaptureSession: %w", err)
	}
	return p, nil
}

// drain runs on a WinRT worker thread for each FrameArrived event.
func (p *framePool) drain(sender uintptr, onFrame capture.FrameHandler) {
	var frame uintptr
	if err := comCall(sender, vtblPoolTryGetNextFrame, uintptr(unsafe.Pointer(&frame))); err != nil {
		log.Debug("TryGetNextFrame failed", "error", err)
		return
	}
	if frame == 0 {
		return
	}
	raw, err := newRawFrame(frame)
	if err != nil {
		log.Debug("unwrap captured surface", "error", err)
		return
	}
	onFrame(raw)
}

func (p *framePool) Recreate(size capture.Size) error {
	if err := comCall(p.pool, vtblPoolRecreate,
		p.device,
		pixelFormatB8G8R8A8,
		framePoolBuffers,
		packSize(size.Width, size.Height),
	); err != nil {
		return fmt.Errorf("Recreate %s: %w", size, err)
	}
	return nil
}

func (p *framePool) StartCapture() error {
	if err := comCall(p.session, vtblSessionStartCapture); err != nil {
		return fmt.Errorf("StartCapture: %w", err)
	}
	return nil
}

func (p *framePool) SetCursorCaptureEnabled(enabled bool) error {
	s2, err := queryInterface(p.session, iidIGraphicsCaptureSession2)
	if err != nil {
		return fmt.Errorf("query IGraphicsCaptureSession2: %w", err)
	}
	defer comRelease(s2)
	return comCall(s2, vtblSessionPutCursorCaptureEnabled, boolArg(enabled))
}

func (p *framePool) SetBorderRequired(required bool) error {
	s3, err := queryInterface(p.session, iidIGraphicsCaptureSession3)
	if err != nil {
		return fmt.Errorf("query IGraphicsCaptureSession3: %w", err)
	}
	defer comRelease(s3)
	return comCall(s3, vtblSessionPutBorderRequired, boolArg(required))
}

// Close unsubscribes from FrameArrived, then closes the session and pool.
// Safe to call more than once.
func (p *framePool) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		if p.handler != nil {
			if err := comCall(p.pool, vtblPoolRemoveFrameArrived, uintptr(p.token)); err != nil {
				errs = append(errs, fmt.Errorf("remove_FrameArrived: %w", err))
			}
			handlerRelease(p.handler.ptr())
		}
		if p.session != 0 {
			if err := closeClosable(p.session); err != nil {
				errs = append(errs, fmt.Errorf("close capture session: %w", err))
			}
			comRelease(p.session)
		}
		if p.pool != 0 {
			if err := closeClosable(p.pool); err != nil {
				errs = append(errs, fmt.Errorf("close frame pool: %w", err))
			}
			comRelease(p.pool)
		}
	})
	return errors.Join(errs...)
}

// rawFrame is a Direct3D11CaptureFrame and the texture behind its surface.
type rawFrame struct {
	frame uintptr // IDirect3D11CaptureFrame
	tex   *texture
	ts    time.Duration

	closeOnce sync.Once
}

func newRawFrame(frame uintptr) (*rawFrame, error) {
	r := &rawFrame{frame: frame}

	var ticks int64 // TimeSpan, 100ns units
	if err := comCall(frame, vtblFrameGetSystemRelativeTime, uintptr(unsafe.Pointer(&ticks))); err == nil {
		r.ts = time.Duration(ticks) * 100
	}

	var surface uintptr
	if err := comCall(frame, vtblFrameGetSurface, uintptr(unsafe.Pointer(&surface))); err != nil {
		r.Close()
		return nil, fmt.Errorf("get_Surface: %w", err)
	}
	defer comRelease(surface)

	access, err := queryInterface(surface, iidIDxgiInterfaceAccess)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("query IDirect3DDxgiInterfaceAccess: %w", err)
	}
	defer comRelease(access)

	var tex uintptr
	if err := comCall(access, vtblDxgiAccessGetInterface,
		uintptr(unsafe.Pointer(iidID3D11Texture2D)),
		uintptr(unsafe.Pointer(&tex)),
	); err != nil {
		r.Close()
		return nil, fmt.Errorf("GetInterface ID3D11Texture2D: %w", err)
	}
	r.tex = newTexture(tex)
	return r, nil
}

func (r *rawFrame) Texture() capture.Texture          { return r.tex }
func (r *rawFrame) Desc() capture.TextureDesc         { return r.tex.desc }
func (r *rawFrame) SystemRelativeTime() time.Duration { return r.ts }

// Close releases the surface texture and returns the frame to the pool.
func (r *rawFrame) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.tex != nil {
			r.tex.Release()
		}
		err = closeClosable(r.frame)
		comRelease(r.frame)
	})
	return err
}
