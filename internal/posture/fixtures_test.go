package posture

import (
	"math"
	"time"
)

// upright builds a seated pose with nothing wrong: ear straight above the
// shoulder midpoint, 90 degree elbows, level gaze and shoulders over hips.
func upright() Landmarks {
	lm := make(Landmarks, LandmarkCount)
	for i := range lm {
		lm[i] = Point{X: 0.5, Y: 0.5}
	}
	lm[LeftShoulder] = Point{X: 0.6, Y: 0.5}
	lm[RightShoulder] = Point{X: 0.4, Y: 0.5}
	lm[RightEar] = Point{X: 0.5, Y: 0.3}
	lm[LeftEar] = Point{X: 0.55, Y: 0.3}

	lm[Nose] = Point{X: 0.5, Y: 0.26}
	lm[LeftEye] = Point{X: 0.53, Y: 0.25}
	lm[RightEye] = Point{X: 0.47, Y: 0.25}

	lm[LeftElbow] = Point{X: 0.6, Y: 0.7}
	lm[LeftWrist] = Point{X: 0.7, Y: 0.7}
	lm[RightElbow] = Point{X: 0.4, Y: 0.7}
	lm[RightWrist] = Point{X: 0.3, Y: 0.7}

	lm[LeftHip] = Point{X: 0.6, Y: 0.9}
	lm[RightHip] = Point{X: 0.4, Y: 0.9}
	return lm
}

// withNeckAngle moves the right ear so the neck angle is deg.
func withNeckAngle(lm Landmarks, deg float64) Landmarks {
	out := append(Landmarks(nil), lm...)
	rad := deg * math.Pi / 180
	// Angle is measured from a ray pointing left of the shoulder midpoint; up is -Y.
	out[RightEar] = Point{X: 0.5 - 0.2*math.Cos(rad), Y: 0.5 - 0.2*math.Sin(rad)}
	return out
}

// withElbowAngle bends the arm on the given model side to deg.
func withElbowAngle(lm Landmarks, elbow, wrist Index, deg float64) Landmarks {
	out := append(Landmarks(nil), lm...)
	rad := deg * math.Pi / 180
	e := out[elbow]
	// Upper arm points straight up from the elbow; rotate the forearm away from it.
	out[wrist] = Point{X: e.X + 0.2*math.Sin(rad), Y: e.Y - 0.2*math.Cos(rad)}
	return out
}

func at(ms int) time.Time {
	return time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond)
}
