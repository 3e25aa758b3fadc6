// Package posture turns pose landmarks into posture issues and debounced alerts.
package posture

import "math"

// LandmarkCount is the number of keypoints the pose model emits per person.
const LandmarkCount = 33

// Index names a fixed position in the pose model's landmark layout.
type Index int

// MediaPipe Pose layout. Only the keypoints the rules read are named.
const (
	Nose          Index = 0
	LeftEye       Index = 2
	RightEye      Index = 5
	LeftEar       Index = 7
	RightEar      Index = 8
	LeftShoulder  Index = 11
	RightShoulder Index = 12
	LeftElbow     Index = 13
	RightElbow    Index = 14
	LeftWrist     Index = 15
	RightWrist    Index = 16
	LeftHip       Index = 23
	RightHip      Index = 24
)

// Point is one normalized landmark. X and Y are in [0,1] relative to the frame,
// Y grows downward. Z is a device-dependent depth estimate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Finite reports whether all three coordinates are usable numbers.
func (p Point) Finite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

// Invalid is the placeholder for a malformed landmark record.
var Invalid = Point{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}

// Landmarks is either empty (no person detected) or exactly LandmarkCount points.
type Landmarks []Point

// Present reports whether a person was detected in the frame.
func (l Landmarks) Present() bool {
	return len(l) > 0
}

// Valid reports whether the set honors the empty-or-complete invariant.
func (l Landmarks) Valid() bool {
	return len(l) == 0 || len(l) == LandmarkCount
}

// At returns the landmark at idx and whether it is present and finite.
func (l Landmarks) At(idx Index) (Point, bool) {
	if int(idx) < 0 || int(idx) >= len(l) {
		return Invalid, false
	}
	p := l[idx]
	return p, p.Finite()
}

// points fetches several landmarks at once, failing if any is unusable.
func (l Landmarks) points(idx ...Index) ([]Point, bool) {
	out := make([]Point, len(idx))
	for i, id := range idx {
		p, ok := l.At(id)
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
