package cmd

import (
	"math"
	"testing"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/spf13/viper"
)

// uprightRaw is a seated pose with nothing wrong, as the pose model would send it.
func uprightRaw() types.RawLandmarks {
	raw := make(types.RawLandmarks, posture.LandmarkCount)
	for i := range raw {
		raw[i] = []float64{0.5, 0.5, 0}
	}
	set := func(idx posture.Index, x, y float64) { raw[idx] = []float64{x, y, 0} }
	set(posture.LeftShoulder, 0.6, 0.5)
	set(posture.RightShoulder, 0.4, 0.5)
	set(posture.RightEar, 0.5, 0.3)
	set(posture.LeftEar, 0.55, 0.3)
	set(posture.Nose, 0.5, 0.26)
	set(posture.LeftEye, 0.53, 0.25)
	set(posture.RightEye, 0.47, 0.25)
	set(posture.LeftElbow, 0.6, 0.7)
	set(posture.LeftWrist, 0.7, 0.7)
	set(posture.RightElbow, 0.4, 0.7)
	set(posture.RightWrist, 0.3, 0.7)
	set(posture.LeftHip, 0.6, 0.9)
	set(posture.RightHip, 0.4, 0.9)
	return raw
}

// forwardHeadRaw tilts the neck to 45.5 degrees.
func forwardHeadRaw() types.RawLandmarks {
	raw := uprightRaw()
	rad := 45.5 * math.Pi / 180
	raw[posture.RightEar] = []float64{0.5 - 0.2*math.Cos(rad), 0.5 - 0.2*math.Sin(rad), 0}
	return raw
}

func mustLandmarks(t *testing.T, raw types.RawLandmarks) posture.Landmarks {
	t.Helper()
	lm, err := raw.ToLandmarks()
	if err != nil {
		t.Fatalf("ToLandmarks() error = %v", err)
	}
	return lm
}

// freshViper swaps in an empty config for the duration of a test.
func freshViper(t *testing.T) {
	t.Helper()
	old := v
	v = viper.New()
	t.Cleanup(func() { v = old })
}
