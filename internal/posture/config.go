package posture

import (
	"fmt"
	"time"
)

// Config holds every tunable threshold of the classifier and debouncer.
type Config struct {
	CVAMinDeg   float64 // below this the head is forward
	ElbowMinDeg float64
	ElbowMaxDeg float64
	EyeDownDiff float64 // nose-below-eyes distance, normalized units

	// SlumpZ is added to the hip depth; shoulders closer than that are rounded.
	// The sign of z is device dependent, so this usually needs calibration.
	SlumpZ        float64
	Persistence   time.Duration // how long an issue must lead before alerting
	VoiceCooldown time.Duration // minimum gap between spoken alerts

	// Mirrored is true when the capture was flipped horizontally before pose
	// estimation, which swaps the model's left/right labels for the user.
	Mirrored bool
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		CVAMinDeg:     70,
		ElbowMinDeg:   80,
		ElbowMaxDeg:   100,
		EyeDownDiff:   0.04,
		SlumpZ:        -0.25,
		Persistence:   2 * time.Second,
		VoiceCooldown: 10 * time.Second,
		Mirrored:      true,
	}
}

// Validate rejects configurations that would make a rule or the debouncer meaningless.
func (c Config) Validate() error {
	if c.ElbowMinDeg >= c.ElbowMaxDeg {
		return fmt.Errorf("elbow range is empty: min %.1f >= max %.1f", c.ElbowMinDeg, c.ElbowMaxDeg)
	}
	if c.CVAMinDeg < 0 || c.CVAMinDeg > 180 {
		return fmt.Errorf("cva threshold must be within [0,180], got %.1f", c.CVAMinDeg)
	}
	if c.Persistence <= 0 {
		return fmt.Errorf("persistence must be positive, got %s", c.Persistence)
	}
	if c.VoiceCooldown < 0 {
		return fmt.Errorf("voice cooldown must not be negative, got %s", c.VoiceCooldown)
	}
	return nil
}
