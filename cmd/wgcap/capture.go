package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wgcap/wgcap/internal/capture"
	"github.com/wgcap/wgcap/internal/capture/wgc"
	"github.com/wgcap/wgcap/internal/logging"
	"github.com/wgcap/wgcap/internal/snapshot"
)

var (
	windowName    string
	windowHandle  uint64
	displayID     int
	cursor        bool
	noBorder      bool
	gpuOnly       bool
	fence         bool
	maxFrames     uint64
	duration      time.Duration
	snapshotDir   string
	snapshotEvery uint64
	snapshotFmt   string
	scale         float64
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a window or display and report the frame rate",
	Long: `Capture frames from one window or display until the target closes, the
frame or time limit is reached, or the process is interrupted. Optionally
saves every Nth frame to --snapshot-dir.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd)
	},
}

func init() {
	f := captureCmd.Flags()
	f.StringVar(&windowName, "window-name", "", "capture the first window whose title contains this text")
	f.Uint64Var(&windowHandle, "window-handle", 0, "capture the window with this HWND")
	f.IntVar(&displayID, "display-id", -1, "capture the display with this index (see 'list displays')")
	f.BoolVar(&cursor, "cursor", false, "include the mouse cursor")
	f.BoolVar(&noBorder, "no-border", false, "ask the OS not to draw the capture border")
	f.BoolVar(&gpuOnly, "gpu-only", false, "keep frames on the GPU, do not map them")
	f.BoolVar(&fence, "fence", false, "wait for the GPU copy to finish before mapping")
	f.Uint64Var(&maxFrames, "frames", 0, "stop after this many frames (0 = unlimited)")
	f.DurationVar(&duration, "duration", 0, "stop after this long (0 = unlimited)")
	f.StringVar(&snapshotDir, "snapshot-dir", "", "save frames to this directory")
	f.Uint64Var(&snapshotEvery, "snapshot-every", 30, "save every Nth frame when --snapshot-dir is set")
	f.StringVar(&snapshotFmt, "snapshot-format", "png", "snapshot format (png, jpg)")
	f.Float64Var(&scale, "scale", 1, "scale factor applied to snapshots")

	captureCmd.MarkFlagsMutuallyExclusive("window-name", "window-handle", "display-id")
}

func resolveTarget(cmd *cobra.Command) (capture.Target, error) {
	flags := cmd.Flags()
	switch {
	case flags.Changed("window-name"):
		return wgc.FindWindow(windowName)
	case flags.Changed("window-handle"):
		return wgc.WindowFromHandle(uintptr(windowHandle))
	case flags.Changed("display-id"):
		return wgc.DisplayByID(displayID)
	default:
		return nil, errors.New("one of --window-name, --window-handle or --display-id is required")
	}
}

// sessionOptions merges the config file with the capture flags. Flags only
// override when explicitly set.
func sessionOptions(cmd *cobra.Command) capture.Options {
	opts := capture.Options{
		CursorCapture:  cfg.CursorCapture,
		BorderRequired: cfg.BorderRequired,
		CPUAccess:      cfg.CPUAccess,
		FenceBeforeMap: cfg.FenceBeforeMap,
		QueueCapacity:  cfg.QueueCapacity,
	}
	flags := cmd.Flags()
	if flags.Changed("cursor") {
		opts.CursorCapture = cursor
	}
	if flags.Changed("no-border") {
		opts.BorderRequired = !noBorder
	}
	if flags.Changed("gpu-only") {
		opts.CPUAccess = !gpuOnly
	}
	if flags.Changed("fence") {
		opts.FenceBeforeMap = fence
	}
	return opts
}

func runCapture(cmd *cobra.Command) error {
	target, err := resolveTarget(cmd)
	if err != nil {
		return err
	}

	opts := sessionOptions(cmd)
	if snapshotDir != "" && !opts.CPUAccess {
		return errors.New("--snapshot-dir needs CPU access, drop --gpu-only")
	}

	session, err := wgc.NewSession(target, opts)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer session.Stop()

	logger := logging.WithSession(log, session.ID())

	var writer *snapshot.Writer
	if snapshotDir != "" {
		writer, err = snapshot.New(snapshot.Options{Dir: snapshotDir, Format: snapshotFmt, Scale: scale})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			writer.Drain(ctx)
			written, rejected, failed := writer.Stats()
			fmt.Printf("snapshots: %d written, %d skipped, %d failed\n", written, rejected, failed)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := session.Start(); err != nil {
		return err
	}
	logger.Info("capture started", logging.KeyTarget, fmt.Sprint(target), "cpuAccess", session.HasCPUAccess())

	var (
		count     uint64
		window    uint64
		lastPrint = time.Now()
		runErr    error
	)
	for frame, err := range session.Frames(ctx) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, capture.ErrEmptyRegion) {
				logger.Debug("frame skipped", logging.KeyError, err)
				continue
			}
			runErr = err
			break
		}
		count++
		window++

		if writer != nil && snapshotEvery > 0 && count%snapshotEvery == 0 {
			img, err := frame.Image()
			if err != nil {
				logger.Warn("snapshot conversion failed", logging.KeyError, err)
			} else {
				writer.Submit(img, count)
			}
		}

		if elapsed := time.Since(lastPrint); elapsed >= time.Second {
			fmt.Printf("%dx%d  %.1f fps\n", frame.Width(), frame.Height(), float64(window)/elapsed.Seconds())
			window = 0
			lastPrint = time.Now()
		}
		if maxFrames > 0 && count >= maxFrames {
			break
		}
	}

	session.Stop()
	m := session.Metrics()
	fmt.Printf("frames: %d delivered, %d arrived, %d dropped, %d reallocations, %.1f avg fps over %s\n",
		m.FramesDelivered, m.FramesArrived, m.FramesDropped, m.Reallocations, m.DeliveredFPS, m.Uptime.Round(time.Millisecond))
	return runErr
}
