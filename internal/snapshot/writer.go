// Package snapshot saves captured frames to disk off the capture loop.
package snapshot

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"github.com/wgcap/wgcap/internal/logging"
)

var log = logging.L("snapshot")

// Options configures a Writer.
type Options struct {
	Dir string
	// Format is "png" or "jpg".
	Format string
	// Scale resizes images before saving. 0 or 1 keeps the original size.
	Scale       float64
	JPEGQuality int
	Workers     int
	QueueSize   int
}

type job struct {
	img image.Image
	seq uint64
}

// Writer encodes and saves images on a bounded set of worker goroutines.
// Submit never blocks: when every worker is busy and the queue is full the
// image is rejected.
type Writer struct {
	opts Options

	queue     chan job
	wg        sync.WaitGroup
	accepting atomic.Bool
	stopOnce  sync.Once
	closeOnce sync.Once
	stopChan  chan struct{}

	written  atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64
}

// New creates opts.Dir if needed and starts the workers.
func New(opts Options) (*Writer, error) {
	opts.Format = strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	switch opts.Format {
	case "":
		opts.Format = "png"
	case "png", "jpg", "jpeg":
	default:
		return nil, fmt.Errorf("snapshot: unsupported format %q", opts.Format)
	}
	if opts.Scale < 0 || opts.Scale > 4 {
		return nil, fmt.Errorf("snapshot: scale %.2f out of range (0, 4]", opts.Scale)
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = 90
	}
	if opts.Workers < 1 {
		opts.Workers = 2
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 4
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create directory: %w", err)
	}

	w := &Writer{
		opts:     opts,
		queue:    make(chan job, opts.QueueSize),
		stopChan: make(chan struct{}),
	}
	w.accepting.Store(true)
	for i := 0; i < opts.Workers; i++ {
		go w.worker()
	}
	log.Debug("snapshot writer started", "dir", opts.Dir, "format", opts.Format, "workers", opts.Workers)
	return w, nil
}

// Submit queues img to be saved as frame number seq. img must not be
// modified afterwards. Returns false if the writer is draining or full.
func (w *Writer) Submit(img image.Image, seq uint64) bool {
	if !w.accepting.Load() {
		return false
	}

	w.wg.Add(1)
	select {
	case w.queue <- job{img: img, seq: seq}:
		return true
	default:
		w.wg.Done()
		w.rejected.Add(1)
		log.Debug("snapshot queue full, frame skipped", "seq", seq)
		return false
	}
}

// Drain stops accepting images and waits for queued ones to be written or
// for ctx to end.
func (w *Writer) Drain(ctx context.Context) {
	w.accepting.Store(false)
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn("snapshot drain timed out", "pending", len(w.queue))
	}

	w.closeOnce.Do(func() {
		close(w.queue)
	})
}

// Stats reports how many images were written, rejected and failed.
func (w *Writer) Stats() (written, rejected, failed uint64) {
	return w.written.Load(), w.rejected.Load(), w.failed.Load()
}

// Path returns the file name used for frame seq.
func (w *Writer) Path(seq uint64) string {
	return filepath.Join(w.opts.Dir, fmt.Sprintf("frame-%06d.%s", seq, w.opts.Format))
}

func (w *Writer) worker() {
	for {
		select {
		case j, ok := <-w.queue:
			if !ok {
				return
			}
			w.run(j)
		case <-w.stopChan:
			for {
				select {
				case j, ok := <-w.queue:
					if !ok {
						return
					}
					w.run(j)
				default:
					return
				}
			}
		}
	}
}

// run saves one image with panic recovery. wg.Done matches the wg.Add in
// Submit.
func (w *Writer) run(j job) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.failed.Add(1)
			log.Error("snapshot save panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := w.save(j); err != nil {
		w.failed.Add(1)
		log.Warn("snapshot save failed", "seq", j.seq, logging.KeyError, err)
		return
	}
	w.written.Add(1)
}

func (w *Writer) save(j job) error {
	img := j.img
	if s := w.opts.Scale; s > 0 && s != 1 {
		width := int(float64(img.Bounds().Dx()) * s)
		img = imaging.Resize(img, max(width, 1), 0, imaging.Lanczos)
	}
	return imaging.Save(img, w.Path(j.seq), imaging.JPEGQuality(w.opts.JPEGQuality))
}
