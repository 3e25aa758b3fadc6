package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
)

// ErrPartialLandmarks means a pose result was neither empty nor a full set.
var ErrPartialLandmarks = errors.New("partial landmark set")

// FrameTask represents a single captured frame sent to a pose worker
type FrameTask struct {
	Index    int
	Data     []byte
	Captured time.Time
}

// RawLandmarks is the pose model output as JSON: one [x, y, z] record per keypoint.
type RawLandmarks [][]float64

// ToLandmarks validates the record count and converts to posture.Landmarks.
// Records with the wrong arity or non-finite values become posture.Invalid so
// only the rules that read them fail closed.
func (r RawLandmarks) ToLandmarks() (posture.Landmarks, error) {
	if len(r) == 0 {
		return posture.Landmarks{}, nil
	}
	if len(r) != posture.LandmarkCount {
		return nil, fmt.Errorf("%w: got %d records, want %d", ErrPartialLandmarks, len(r), posture.LandmarkCount)
	}
	lm := make(posture.Landmarks, len(r))
	for i, rec := range r {
		if len(rec) != 3 {
			lm[i] = posture.Invalid
			continue
		}
		p := posture.Point{X: rec[0], Y: rec[1], Z: rec[2]}
		if !p.Finite() {
			p = posture.Invalid
		}
		lm[i] = p
	}
	return lm, nil
}

// RecordedFrame is one line of a landmark recording (JSON Lines), as read by replay
type RecordedFrame struct {
	T         float64      `json:"t"` // seconds since the start of the recording
	Landmarks RawLandmarks `json:"landmarks"`
}

// ErrorResult captures the error object returned by Python on failure
type ErrorResult struct {
	Error string `json:"error"`
}
