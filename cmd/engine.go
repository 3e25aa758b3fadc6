package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/posturewatch/internal/mailbox"
	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/andresmejia3/posturewatch/internal/utils"
	"github.com/andresmejia3/posturewatch/internal/worker"
	"github.com/spf13/cobra"
)

const megabyte = 1024 * 1024

// Options holds shared configuration for the commands that run the pose model
type Options struct {
	InputPath           string
	Device              string
	FPS                 float64
	NthFrame            int
	NumEngines          int
	WorkerScript        string
	WorkerTimeout       time.Duration
	DetectionConfidence float64
	TrackingConfidence  float64
	Duration            time.Duration
	Speak               bool
	Mute                bool
	Flip                bool
}

// addWorkerFlags registers the pose model flags on cmd.
func addWorkerFlags(cmd *cobra.Command, opts *Options) {
	def := worker.DefaultConfig()
	cmd.Flags().StringVar(&opts.WorkerScript, "worker-script", def.Script, "Path to the Python pose worker")
	cmd.Flags().DurationVar(&opts.WorkerTimeout, "worker-timeout", def.ReadTimeout, "How long to wait for the pose model to answer one frame")
	cmd.Flags().Float64Var(&opts.DetectionConfidence, "min-detection", def.DetectionConfidence, "Minimum pose detection confidence (0-1)")
	cmd.Flags().Float64Var(&opts.TrackingConfidence, "min-tracking", def.TrackingConfidence, "Minimum pose tracking confidence (0-1)")
}

// addCaptureFlags registers the webcam flags on cmd.
func addCaptureFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.Device, "device", "d", utils.DefaultCaptureDevice(), "Capture device")
	cmd.Flags().Float64Var(&opts.FPS, "fps", 10, "Frames per second to sample from the camera")
}

func (o Options) workerConfig() worker.Config {
	return worker.Config{
		Script:              o.WorkerScript,
		DetectionConfidence: o.DetectionConfidence,
		TrackingConfidence:  o.TrackingConfidence,
		ReadTimeout:         o.WorkerTimeout,
	}
}

func validateWorkerFlags(opts Options) error {
	if opts.DetectionConfidence < 0 || opts.DetectionConfidence > 1 {
		return fmt.Errorf("--min-detection must be between 0 and 1, got %v", opts.DetectionConfidence)
	}
	if opts.TrackingConfidence < 0 || opts.TrackingConfidence > 1 {
		return fmt.Errorf("--min-tracking must be between 0 and 1, got %v", opts.TrackingConfidence)
	}
	if opts.WorkerTimeout <= 0 {
		return fmt.Errorf("--worker-timeout must be positive, got %s", opts.WorkerTimeout)
	}
	return nil
}

func validateCaptureFlags(opts Options) error {
	if opts.Device == "" {
		return errors.New("--device is required")
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("--fps must be positive, got %v", opts.FPS)
	}
	return validateWorkerFlags(opts)
}

// frameSkippable reports whether err only spoils the current frame.
// Anything else means the worker process is gone.
func frameSkippable(err error) bool {
	return errors.Is(err, worker.ErrFrameRejected) || errors.Is(err, types.ErrPartialLandmarks)
}

// poseResult wraps the output from an engine to be sent to the aggregator
type poseResult struct {
	Index     int
	Landmarks posture.Landmarks
	Skipped   bool
}

// engineError records the first fatal worker failure so the caller can print its logs.
type engineError struct {
	once sync.Once
	err  error
	cmd  *utils.SafeCommand
}

func (e *engineError) set(err error, cmd *utils.SafeCommand) {
	e.once.Do(func() {
		e.err = err
		e.cmd = cmd
	})
}

// startEngine manages the lifecycle of a single pose worker.
// It reads tasks from the channel and sends landmarks to the aggregator.
// A fatal error is recorded in fail and cancel is called; remaining tasks are drained
// so the producer never blocks.
func startEngine(ctx context.Context, id int, cfg worker.Config, tasks <-chan types.FrameTask, results chan<- poseResult, fail *engineError, cancel context.CancelFunc) {
	w, err := worker.NewPoseWorker(ctx, id, cfg)
	if err != nil {
		fail.set(fmt.Errorf("engine %d startup failed: %w", id, err), nil)
		cancel()
		for range tasks {
		}
		return
	}
	defer w.Close()

	for task := range tasks {
		if ctx.Err() != nil {
			continue
		}
		lm, err := w.ProcessFrame(task.Data)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if !frameSkippable(err) {
				// DRAIN: wait for the process to exit so its stderr is complete
				w.Close()
				fail.set(fmt.Errorf("engine %d: %w", id, err), w.Cmd)
				cancel()
				continue
			}
			slog.Debug("skipping frame", "engine", id, "frame", task.Index, "err", err)
			results <- poseResult{Index: task.Index, Skipped: true}
			continue
		}
		results <- poseResult{Index: task.Index, Landmarks: lm}
	}
}

// reorder releases results in frame order. Engines finish out of order,
// but the debouncer must see frames in the order they were captured.
type reorder struct {
	buffer map[int]poseResult
	next   int
	step   int
}

func newReorder(first, step int) *reorder {
	return &reorder{buffer: make(map[int]poseResult), next: first, step: step}
}

// push buffers r and returns every result that is now in sequence.
func (q *reorder) push(r poseResult) []poseResult {
	q.buffer[r.Index] = r
	var ready []poseResult
	for {
		res, ok := q.buffer[q.next]
		if !ok {
			return ready
		}
		delete(q.buffer, q.next)
		ready = append(ready, res)
		q.next += q.step
	}
}

// pending is the number of results waiting for an earlier frame.
func (q *reorder) pending() int {
	return len(q.buffer)
}

// liveCapture streams webcam frames into a latest-frame mailbox so a slow
// pose model always sees the newest frame instead of a growing backlog.
type liveCapture struct {
	ffmpeg *utils.SafeCommand
	frames *mailbox.Slot[types.FrameTask]
	done   chan error
}

func startCapture(ctx context.Context, opts Options, mirrored bool) (*liveCapture, error) {
	ffmpeg := utils.WrapCmd(utils.NewCaptureCmd(ctx, opts.Device, opts.FPS, mirrored))
	out, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	c := &liveCapture{
		ffmpeg: ffmpeg,
		frames: mailbox.New[types.FrameTask](),
		done:   make(chan error, 1),
	}
	go c.read(out)
	return c, nil
}

func (c *liveCapture) read(out io.Reader) {
	defer c.frames.Close()

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	index := 0
	for scanner.Scan() {
		index++
		// The scanner reuses its buffer; the task outlives this iteration.
		c.frames.Put(types.FrameTask{Index: index, Data: bytes.Clone(scanner.Bytes()), Captured: time.Now()})
	}
	err := scanner.Err()
	if werr := c.ffmpeg.Wait(); err == nil {
		err = werr
	}
	c.done <- err
}

// runLive drives one pose worker from the webcam until ctx is done, the
// capture ends, or handle returns false. Cancelling ctx is a normal stop.
func runLive(ctx context.Context, opts Options, mirrored bool, handle func(types.FrameTask, posture.Landmarks) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := worker.NewPoseWorker(ctx, 0, opts.workerConfig())
	if err != nil {
		utils.ShowError("Pose worker startup failed", err, nil)
		return err
	}
	defer w.Close()

	capture, err := startCapture(ctx, opts, mirrored)
	if err != nil {
		utils.ShowError("Camera capture failed", err, nil)
		return err
	}
	fmt.Fprintf(os.Stderr, "🎥 Capturing from %s at %.0f fps (Ctrl+C to stop)\n", opts.Device, opts.FPS)

	var runErr error
	captureEnded := false
	for {
		task, ok := capture.frames.Take()
		if !ok {
			captureEnded = true
			break
		}
		lm, err := w.ProcessFrame(task.Data)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if frameSkippable(err) {
				slog.Debug("skipping frame", "frame", task.Index, "err", err)
				continue
			}
			w.Close()
			utils.ShowError("Pose worker crashed", err, w.Cmd)
			runErr = err
			break
		}
		if !handle(task, lm) {
			break
		}
	}

	// Anything but the camera stream ending on its own means we killed FFmpeg.
	stopped := !captureEnded || ctx.Err() != nil
	cancel()
	captureErr := <-capture.done
	if dropped := capture.frames.Drops(); dropped > 0 {
		slog.Debug("frames replaced before analysis", "dropped", dropped)
	}
	if runErr != nil {
		return runErr
	}
	if captureErr != nil && !stopped {
		if capture.ffmpeg.Stderr.Len() > 0 {
			fmt.Fprintf(os.Stderr, "\nFFmpeg Logs:\n%s\n", capture.ffmpeg.Stderr.String())
		}
		utils.ShowError("Camera capture ended", captureErr, nil)
		return captureErr
	}
	return nil
}
