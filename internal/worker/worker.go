package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/andresmejia3/posturewatch/internal/utils" // Using the SafeCommand wrapper
)

// ErrWorkerTimeout is returned when the pose model does not answer within Config.ReadTimeout.
var ErrWorkerTimeout = errors.New("pose worker timed out")

// ErrFrameRejected wraps errors the pose model reported for a single frame.
// The worker is still usable afterwards.
var ErrFrameRejected = errors.New("python worker error")

const (
	statusOK    = 0
	statusError = 1

	// maxResponse guards against a corrupted length header.
	maxResponse = 16 * 1024 * 1024
)

// Config tunes the pose model subprocess.
type Config struct {
	Script              string  // path to the Python entry point
	DetectionConfidence float64 // minimum score to accept a detected person
	TrackingConfidence  float64 // minimum score to keep tracking landmarks
	ReadTimeout         time.Duration
}

// DefaultConfig matches the pose model's stock confidences.
func DefaultConfig() Config {
	return Config{
		Script:              "python/pose_worker.py",
		DetectionConfidence: 0.5,
		TrackingConfidence:  0.5,
		ReadTimeout:         30 * time.Second,
	}
}

// PoseWorker owns one Python pose-estimation process.
type PoseWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
	timeout  time.Duration
}

// NewPoseWorker starts the pose model. The process is killed when ctx is cancelled.
func NewPoseWorker(ctx context.Context, id int, cfg Config) (*PoseWorker, error) {
	py := utils.NewSafeCommandContext(ctx, "python3", "-u", cfg.Script,
		"--min-detection", strconv.FormatFloat(cfg.DetectionConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(cfg.TrackingConfidence, 'f', -1, 64),
	)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PoseWorker{
		ID:       id,
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
		timeout:  cfg.ReadTimeout,
	}, nil
}

// communicate sends one length-prefixed request and reads one length-prefixed response.
func (w *PoseWorker) communicate(data []byte) ([]byte, error) {
	// Protocol: [Length][Data]
	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.Stdin.Write(data); err != nil {
		return nil, err
	}

	if d, ok := w.DataPipe.(interface{ SetReadDeadline(time.Time) error }); ok && w.timeout > 0 {
		d.SetReadDeadline(time.Now().Add(w.timeout))
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, w.readErr(err) // This is where we catch the "ModuleNotFoundError" crash
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponse {
		return nil, fmt.Errorf("response length %d exceeds limit", respLen)
	}
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, w.readErr(err)
	}
	return respBody, nil
}

func (w *PoseWorker) readErr(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w after %s", ErrWorkerTimeout, w.timeout)
	}
	return err
}

// ProcessFrame sends one JPEG frame and returns the detected landmarks.
// An empty result means no person was in the frame.
//
// Response payload: [Status:0][JSON landmarks] or [Status:1][MsgLen][Msg].
func (w *PoseWorker) ProcessFrame(jpeg []byte) (posture.Landmarks, error) {
	resp, err := w.communicate(jpeg)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("empty response from pose worker %d", w.ID)
	}

	switch resp[0] {
	case statusOK:
		var raw types.RawLandmarks
		dec := json.NewDecoder(bytes.NewReader(resp[1:]))
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("malformed landmarks from worker %d: %w", w.ID, err)
		}
		return raw.ToLandmarks()
	case statusError:
		body := resp[1:]
		if len(body) < 4 {
			return nil, fmt.Errorf("%w: truncated message", ErrFrameRejected)
		}
		msgLen := binary.BigEndian.Uint32(body[:4])
		if int(msgLen) > len(body)-4 {
			return nil, fmt.Errorf("%w: truncated message", ErrFrameRejected)
		}
		return nil, fmt.Errorf("%w: %s", ErrFrameRejected, body[4:4+msgLen])
	default:
		return nil, fmt.Errorf("unknown status byte %d from worker %d", resp[0], w.ID)
	}
}

// Close shuts the worker down and waits for the process to exit.
func (w *PoseWorker) Close() {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd != nil {
		w.Cmd.Wait()
	}
}
