package capture

import (
	"fmt"
	"log/slog"
	"time"
)

// StagingBuffer crops raw frames into the session's single staging texture.
// It is owned by the consumer and never touched by the backend callback.
type StagingBuffer struct {
	device    Device
	target    Target
	pool      FramePool
	cpuAccess bool
	fence     bool
	metrics   *Metrics
	log       *slog.Logger

	// sized is set once the pool matches contentSize, even when the
	// region turned out empty and no texture was allocated.
	sized       bool
	contentSize Size
	region      Box
	texture     Texture
}

func newStagingBuffer(device Device, target Target, pool FramePool, opts Options, metrics *Metrics, logger *slog.Logger) *StagingBuffer {
	return &StagingBuffer{
		device:    device,
		target:    target,
		pool:      pool,
		cpuAccess: opts.CPUAccess,
		fence:     opts.FenceBeforeMap,
		metrics:   metrics,
		log:       logger,
	}
}

// Region returns the client region copied out of each raw frame.
func (b *StagingBuffer) Region() Box {
	return b.region
}

// Stage copies the client region of raw into the staging texture,
// reallocating it first when the content size changed. Reallocation
// failures wrap ErrResourceExhausted. While the client region is empty
// every frame of the same size returns ErrEmptyRegion without touching
// the pool. raw stays owned by the caller.
func (b *StagingBuffer) Stage(raw RawFrame) (*Frame, error) {
	start := time.Now()
	desc := raw.Desc()

	if !b.sized || desc.Size() != b.contentSize {
		if err := b.resize(desc); err != nil {
			return nil, err
		}
	}
	if b.texture == nil {
		return nil, ErrEmptyRegion
	}

	if err := b.device.CopySubregion(b.texture, raw.Texture(), b.region); err != nil {
		return nil, backendErr("copy subregion", err)
	}

	f := &Frame{texture: b.texture, desc: b.texture.Desc()}
	if b.cpuAccess {
		if err := b.mapFrame(f); err != nil {
			return nil, err
		}
	}

	b.metrics.RecordDelivery(time.Since(start))
	return f, nil
}

// mapFrame maps the staging texture, records the pointer and pitch, and
// unmaps right away. No fence is issued unless FenceBeforeMap is set.
func (b *StagingBuffer) mapFrame(f *Frame) error {
	if b.fence {
		if fencer, ok := b.device.(Fencer); ok {
			if err := fencer.WaitIdle(); err != nil {
				return backendErr("wait for gpu", err)
			}
		}
	}

	m, err := b.device.Map(b.texture)
	if err != nil {
		return backendErr("map staging texture", err)
	}
	f.data = m.Data
	f.rowPitch = m.RowPitch
	b.device.Unmap(b.texture)
	return nil
}

func (b *StagingBuffer) resize(desc TextureDesc) error {
	size := desc.Size()

	if err := b.pool.Recreate(size); err != nil {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, backendErr("recreate frame pool", err))
	}

	region, err := b.target.ClientRegion()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResourceExhausted, backendErr("client region", err))
	}
	if !region.Within(size) {
		b.log.Debug("client region exceeds surface, clipping",
			"region", region.String(), "surface", size.String())
		region.Right = min(region.Right, size.Width)
		region.Bottom = min(region.Bottom, size.Height)
	}

	b.Release()
	b.sized = true
	b.contentSize = size
	b.region = region
	if region.Empty() {
		b.log.Debug("client region empty, waiting for resize", "surface", size.String())
		return ErrEmptyRegion
	}

	tex, err := b.device.CreateTexture(StagingDesc(region.Size(), desc.Format, b.cpuAccess))
	if err != nil {
		b.sized = false
		return fmt.Errorf("%w: %w", ErrResourceExhausted, backendErr("create staging texture", err))
	}

	b.texture = tex
	b.metrics.RecordRealloc()
	b.log.Debug("staging texture reallocated",
		"surface", size.String(), "region", region.String(), "cpuAccess", b.cpuAccess)
	return nil
}

// Release frees the staging texture. Idempotent. The next Stage
// reallocates.
func (b *StagingBuffer) Release() {
	b.sized = false
	if b.texture != nil {
		b.texture.Release()
		b.texture = nil
	}
}
