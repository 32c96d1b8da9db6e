package capture

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/wgcap/wgcap/internal/logging"
)

var log = logging.L("capture")

// State is the session lifecycle state.
type State int

const (
	StateCreated State = iota
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session captures frames from one target.
//
// The backend callback only touches the pending queue and metrics. Grabs,
// Start and Stop are serialized by consumerMu, which also guards the device
// and staging texture. Grab waits without holding it, so Stop from another
// goroutine is observed by a blocked Grab.
type Session struct {
	id     string
	log    *slog.Logger
	opts   Options
	target Target

	device   Device
	item     CaptureItem
	pool     FramePool
	queue    *PendingFrameQueue
	closeSig *CloseSignal
	staging  *StagingBuffer
	metrics  *Metrics

	consumerMu sync.Mutex

	mu      sync.Mutex
	state   State
	stopped chan struct{}
}

// NewSession creates the device, frame pool and capture session for target
// and subscribes to frame arrival. Nothing is captured until Start. On
// failure every resource created so far is released.
func NewSession(target Target, backend Backend, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	s := &Session{
		id:      uuid.NewString(),
		opts:    opts,
		target:  target,
		queue:   NewPendingFrameQueue(opts.QueueCapacity),
		metrics: newMetrics(),
		stopped: make(chan struct{}),
	}
	s.log = logging.WithSession(log, s.id).With(logging.KeyTarget, KindOf(target).String())

	if err := s.init(backend); err != nil {
		s.queue.Disconnect()
		if cerr := s.release(); cerr != nil {
			s.log.Warn("cleanup after failed session creation", logging.KeyError, cerr)
		}
		return nil, err
	}

	s.log.Info("capture session created",
		"handle", fmt.Sprintf("0x%X", target.RawHandle()),
		"region", s.staging.Region().String(),
		"cpuAccess", opts.CPUAccess,
		"cursor", opts.CursorCapture,
		"border", opts.BorderRequired)
	return s, nil
}

func (s *Session) init(backend Backend) error {
	dev, err := OpenDevice(backend.OpenDevice, s.opts.DriverPreference)
	if err != nil {
		return err
	}
	s.device = dev

	item, err := s.target.CreateCaptureItem()
	if err != nil {
		return backendErr("create capture item", err)
	}
	s.item = item

	size, err := item.Size()
	if err != nil {
		return backendErr("capture item size", err)
	}

	pool, err := backend.CreateFramePool(dev, item, size, s.onFrameArrived)
	if err != nil {
		return backendErr("create frame pool", err)
	}
	s.pool = pool

	if err := pool.SetCursorCaptureEnabled(s.opts.CursorCapture); err != nil {
		return backendErr("set cursor capture", err)
	}
	// Older Windows builds cannot hide the border.
	if err := pool.SetBorderRequired(s.opts.BorderRequired); err != nil {
		s.log.Warn("could not change capture border", "required", s.opts.BorderRequired, logging.KeyError, err)
	}

	s.staging = newStagingBuffer(dev, s.target, pool, s.opts, s.metrics, s.log)
	region, err := s.target.ClientRegion()
	if err != nil {
		return backendErr("client region", err)
	}
	s.staging.region = region

	s.closeSig = s.target.CloseSignal()
	if s.closeSig == nil {
		s.closeSig = NewCloseSignal()
	}
	return nil
}

// onFrameArrived runs on the backend's thread. It must never block.
func (s *Session) onFrameArrived(raw RawFrame) {
	s.metrics.RecordArrival()
	ts := raw.SystemRelativeTime()

	switch s.queue.Offer(raw) {
	case OfferEnqueued:
	case OfferDropped:
		s.metrics.RecordDrop()
		s.log.Debug("pending queue full, dropping frame",
			"systemRelativeTime", ts, "capacity", s.queue.Cap())
		closeRaw(raw)
	case OfferDisconnected:
		closeRaw(raw)
	}
}

// Start begins frame delivery. It is only valid once: a started session
// returns ErrAlreadyStarted and a stopped one ErrSessionStopped.
func (s *Session) Start() error {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()

	switch s.State() {
	case StateStarted:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrSessionStopped
	}

	if err := s.pool.StartCapture(); err != nil {
		return backendErr("start capture", err)
	}
	s.setState(StateStarted)
	s.log.Info("capture started")
	return nil
}

// TryGrab never blocks. The queue is polled before the close signal so a
// frame that arrived just before the target was destroyed is still
// delivered. After Stop it always reports FrameEnded.
//
// Copy and map failures are returned with FramePending and the session
// keeps running. Staging reallocation failures and ErrChannel stop the
// session and are returned with FrameEnded.
func (s *Session) TryGrab() (*Frame, FrameState, error) {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()

	if s.State() == StateStopped {
		return nil, FrameEnded, nil
	}

	if raw, ok := s.queue.TryRecv(); ok {
		return s.stage(raw)
	}

	if s.queue.Disconnected() {
		s.log.Error("pending queue disconnected while session running")
		s.stopLocked()
		return nil, FrameEnded, ErrChannel
	}

	if s.closeSig.Fired() {
		s.log.Info("capture target closed")
		s.stopLocked()
		return nil, FrameEnded, nil
	}
	return nil, FramePending, nil
}

func (s *Session) stage(raw RawFrame) (*Frame, FrameState, error) {
	defer closeRaw(raw)

	f, err := s.staging.Stage(raw)
	if err == nil {
		return f, FrameReady, nil
	}
	if errors.Is(err, ErrResourceExhausted) {
		s.log.Error("staging reallocation failed, stopping session", logging.KeyError, err)
		s.stopLocked()
		return nil, FrameEnded, err
	}
	return nil, FramePending, err
}

// Grab waits for the next frame. A nil frame with a nil error means the
// stream ended: the target was destroyed or the session stopped.
func (s *Session) Grab(ctx context.Context) (*Frame, error) {
	for {
		f, state, err := s.TryGrab()
		if err != nil {
			return nil, err
		}
		switch state {
		case FrameReady:
			return f, nil
		case FrameEnded:
			return nil, nil
		}
		if s.State() == StateCreated {
			return nil, ErrNotStarted
		}

		select {
		case <-s.queue.Ready():
		case <-s.closeSig.Done():
		case <-s.stopped:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Frames yields frames until the stream ends or ctx is done. Per-frame
// errors are yielded and iteration continues while the session is still
// started. Each frame is only valid until the next iteration.
func (s *Session) Frames(ctx context.Context) iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		for {
			f, err := s.Grab(ctx)
			if err != nil {
				if !yield(nil, err) || ctx.Err() != nil || s.State() != StateStarted {
					return
				}
				continue
			}
			if f == nil || !yield(f, nil) {
				return
			}
		}
	}
}

// Stop ends the session and releases every resource. Idempotent.
func (s *Session) Stop() error {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() error {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopped
	close(s.stopped)
	s.mu.Unlock()

	s.queue.Disconnect()
	err := s.release()

	snap := s.metrics.Snapshot()
	s.log.Info("capture session stopped",
		"arrived", snap.FramesArrived,
		"dropped", snap.FramesDropped,
		"delivered", snap.FramesDelivered,
		"reallocations", snap.Reallocations)
	if err != nil {
		s.log.Warn("capture session teardown", logging.KeyError, err)
	}
	return err
}

func (s *Session) release() error {
	var errs []error
	if s.closeSig != nil {
		s.closeSig.Release()
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			errs = append(errs, backendErr("close frame pool", err))
		}
	}
	if s.item != nil {
		if err := s.item.Close(); err != nil {
			errs = append(errs, backendErr("close capture item", err))
		}
	}
	if s.staging != nil {
		s.staging.Release()
	}
	if s.device != nil {
		if err := s.device.Close(); err != nil {
			errs = append(errs, backendErr("close device", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Target describes the captured source and its current client region.
func (s *Session) Target() TargetRef {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()
	return TargetRef{
		Kind:      KindOf(s.target),
		RawHandle: s.target.RawHandle(),
		Region:    s.staging.Region(),
	}
}

// HasCPUAccess reports whether frames carry mapped memory.
func (s *Session) HasCPUAccess() bool { return s.opts.CPUAccess }

// Device exposes the graphics device for interop with other GPU code. It
// must only be used from the goroutine that grabs frames. Returns nil once
// the session is stopped, since Stop closes the device.
func (s *Session) Device() Device {
	if s.State() == StateStopped {
		return nil
	}
	return s.device
}

func (s *Session) Metrics() MetricsSnapshot { return s.metrics.Snapshot() }

func closeRaw(raw RawFrame) {
	if err := raw.Close(); err != nil {
		log.Debug("release raw frame", logging.KeyError, err)
	}
}
