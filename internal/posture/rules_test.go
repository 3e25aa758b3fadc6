package posture

import (
	"math"
	"strings"
	"testing"
)

func TestAnalyzeHead(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		lm     Landmarks
		status Status
	}{
		{"Ear above shoulders", upright(), StatusGood},
		{"Ear sharply forward", withNeckAngle(upright(), 40), StatusIssue},
		{"Just above threshold", withNeckAngle(upright(), 70.5), StatusGood},
		{"Just below threshold", withNeckAngle(upright(), 69.5), StatusIssue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeHead(tt.lm, cfg)
			if got.Status != tt.status {
				t.Errorf("AnalyzeHead() status = %v, want %v (%s)", got.Status, tt.status, got.Message)
			}
			if got.Kind != KindNeckForward {
				t.Errorf("AnalyzeHead() kind = %v", got.Kind)
			}
		})
	}
}

func TestAnalyzeHead_MessageEmbedsAngle(t *testing.T) {
	got := AnalyzeHead(withNeckAngle(upright(), 45.5), DefaultConfig())
	if !got.Active() {
		t.Fatalf("expected NECK_FORWARD, got %v", got.Status)
	}
	if !strings.Contains(got.Message, "45°") || !strings.Contains(got.Message, "70°") {
		t.Errorf("message should embed measured angle and threshold, got %q", got.Message)
	}
}

func TestAnalyzeShoulders(t *testing.T) {
	cfg := DefaultConfig()

	slumped := upright()
	slumped[LeftShoulder].Z = -0.3
	slumped[RightShoulder].Z = -0.4

	borderline := upright()
	borderline[LeftShoulder].Z = -0.2
	borderline[RightShoulder].Z = -0.2

	if got := AnalyzeShoulders(upright(), cfg); got.Status != StatusGood {
		t.Errorf("level shoulders: got %v (%s)", got.Status, got.Message)
	}
	if got := AnalyzeShoulders(slumped, cfg); got.Status != StatusIssue {
		t.Errorf("slumped shoulders: got %v (%s)", got.Status, got.Message)
	}
	if got := AnalyzeShoulders(borderline, cfg); got.Status != StatusGood {
		t.Errorf("shoulders within threshold: got %v (%s)", got.Status, got.Message)
	}
}

func TestAnalyzeElbows(t *testing.T) {
	cfg := DefaultConfig()

	got := AnalyzeElbows(upright(), cfg)
	if got.Status != StatusGood {
		t.Fatalf("90/90 elbows: got %v (%s)", got.Status, got.Message)
	}
	if !strings.Contains(got.Message, "left 90°") || !strings.Contains(got.Message, "right 90°") {
		t.Errorf("good result should report both angles, got %q", got.Message)
	}

	tests := []struct {
		name     string
		mirrored bool
		elbow    Index
		wrist    Index
		side     string
		other    string
	}{
		// On a mirrored capture the model's left arm is the user's right arm.
		{"Mirrored model left", true, LeftElbow, LeftWrist, "right", "left"},
		{"Mirrored model right", true, RightElbow, RightWrist, "left", "right"},
		{"Unmirrored model left", false, LeftElbow, LeftWrist, "left", "right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Mirrored = tt.mirrored
			lm := withElbowAngle(upright(), tt.elbow, tt.wrist, 150.5)

			got := AnalyzeElbows(lm, c)
			if got.Status != StatusIssue {
				t.Fatalf("expected ELBOW_ANGLE issue, got %v (%s)", got.Status, got.Message)
			}
			if !strings.Contains(got.Message, tt.side+" 150°") {
				t.Errorf("message should name %s side, got %q", tt.side, got.Message)
			}
			if strings.Contains(got.Message, tt.other+" ") {
				t.Errorf("message should omit passing %s side, got %q", tt.other, got.Message)
			}
		})
	}

	both := withElbowAngle(withElbowAngle(upright(), LeftElbow, LeftWrist, 60.5), RightElbow, RightWrist, 120.5)
	got = AnalyzeElbows(both, cfg)
	if !strings.Contains(got.Message, "left 120°") || !strings.Contains(got.Message, "right 60°") {
		t.Errorf("both failing sides should be named, got %q", got.Message)
	}
}

func TestAnalyzeGaze(t *testing.T) {
	cfg := DefaultConfig()

	down := upright()
	down[Nose].Y = 0.30

	if got := AnalyzeGaze(upright(), cfg); got.Status != StatusGood {
		t.Errorf("level gaze: got %v (%s)", got.Status, got.Message)
	}
	if got := AnalyzeGaze(down, cfg); got.Status != StatusIssue {
		t.Errorf("nose 0.05 below eyes: got %v (%s)", got.Status, got.Message)
	}
}

func TestRulesFailClosed(t *testing.T) {
	cfg := DefaultConfig()
	lm := upright()
	lm[RightEar] = Invalid
	lm[LeftHip].Z = math.Inf(1)
	lm[Nose].Y = math.NaN()
	lm[LeftWrist] = Invalid

	for _, r := range []Result{
		AnalyzeHead(lm, cfg),
		AnalyzeShoulders(lm, cfg),
		AnalyzeGaze(lm, cfg),
		AnalyzeElbows(lm, cfg),
	} {
		if r.Status != StatusUnknown {
			t.Errorf("%v: expected UNKNOWN, got %v", r.Kind, r.Status)
		}
		if r.Active() {
			t.Errorf("%v: unknown result must not be active", r.Kind)
		}
	}
}

func TestMeasure(t *testing.T) {
	m, ok := Measure(upright(), true)
	if !ok {
		t.Fatal("Measure() rejected a complete landmark set")
	}
	if math.Abs(m.NeckAngle-90) > 1e-9 {
		t.Errorf("NeckAngle = %v, want 90", m.NeckAngle)
	}
	if math.Abs(m.GazeDrop-0.01) > 1e-9 {
		t.Errorf("GazeDrop = %v, want 0.01", m.GazeDrop)
	}
	if math.Abs(m.LeftElbow-90) > 1e-9 || math.Abs(m.RightElbow-90) > 1e-9 {
		t.Errorf("elbows = %v/%v, want 90/90", m.LeftElbow, m.RightElbow)
	}

	if _, ok := Measure(nil, true); ok {
		t.Error("Measure() accepted an empty landmark set")
	}

	noArms := upright()
	noArms[LeftWrist] = Invalid
	m, ok = Measure(noArms, true)
	if !ok {
		t.Fatal("Measure() rejected a frame with only the arms out of view")
	}
	if !math.IsNaN(m.LeftElbow) || !math.IsNaN(m.RightElbow) {
		t.Errorf("elbows = %v/%v, want NaN", m.LeftElbow, m.RightElbow)
	}

	noEars := upright()
	noEars[LeftEar] = Invalid
	noEars[RightEar] = Invalid
	if _, ok := Measure(noEars, true); ok {
		t.Error("Measure() accepted a frame without ears")
	}
}
