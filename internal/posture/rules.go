package posture

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

func unknown(kind Kind, what string) Result {
	return Result{Kind: kind, Status: StatusUnknown, Message: what + " unavailable"}
}

// neckAngle is the craniovertebral angle proxy: the angle at the shoulder
// midpoint between a horizontal ray pointing left and the right ear.
func neckAngle(lm Landmarks) (float64, bool) {
	pts, ok := lm.points(LeftShoulder, RightShoulder, RightEar)
	if !ok {
		return 0, false
	}
	center := midpoint(xy(pts[0]), xy(pts[1]))
	horizontal := r2.Vec{X: center.X - 1, Y: center.Y}
	return Angle(horizontal, center, xy(pts[2])), true
}

// AnalyzeHead flags forward head posture when the neck angle drops below cfg.CVAMinDeg.
func AnalyzeHead(lm Landmarks, cfg Config) Result {
	cva, ok := neckAngle(lm)
	if !ok {
		return unknown(KindNeckForward, "neck angle")
	}
	if cva < cfg.CVAMinDeg {
		return Result{
			Kind:   KindNeckForward,
			Status: StatusIssue,
			Message: fmt.Sprintf("Forward head: neck angle %d° (min %d°). Align your ears over your shoulders.",
				int(cva), int(cfg.CVAMinDeg)),
		}
	}
	return Result{Kind: KindNeckForward, Status: StatusGood, Message: fmt.Sprintf("Neck aligned: %d°", int(cva))}
}

// shoulderDepth returns the shoulder depth average minus the hip depth average.
func shoulderDepth(lm Landmarks) (float64, bool) {
	pts, ok := lm.points(LeftShoulder, RightShoulder, LeftHip, RightHip)
	if !ok {
		return 0, false
	}
	shoulderZ := (pts[0].Z + pts[1].Z) / 2
	hipZ := (pts[2].Z + pts[3].Z) / 2
	return shoulderZ - hipZ, true
}

// AnalyzeShoulders flags rounded shoulders when the shoulders sit closer to
// the camera than the hips by more than cfg.SlumpZ.
func AnalyzeShoulders(lm Landmarks, cfg Config) Result {
	diff, ok := shoulderDepth(lm)
	if !ok {
		return unknown(KindShoulderRound, "shoulder depth")
	}
	// shoulderZ < hipZ + SlumpZ
	if diff < cfg.SlumpZ {
		return Result{
			Kind:   KindShoulderRound,
			Status: StatusIssue,
			Message: fmt.Sprintf("Rounded shoulders: depth offset %.2f (limit %.2f). Open your chest and pull your shoulders back.",
				diff, cfg.SlumpZ),
		}
	}
	return Result{Kind: KindShoulderRound, Status: StatusGood, Message: fmt.Sprintf("Shoulders open: depth offset %.2f", diff)}
}

type arm struct {
	label                  string
	shoulder, elbow, wrist Index
}

// arms maps model landmarks to the user's sides. On a mirrored capture the
// model's right-side keypoints belong to the user's left arm.
func arms(mirrored bool) [2]arm {
	modelLeft := arm{shoulder: LeftShoulder, elbow: LeftElbow, wrist: LeftWrist}
	modelRight := arm{shoulder: RightShoulder, elbow: RightElbow, wrist: RightWrist}
	if mirrored {
		modelRight.label, modelLeft.label = "left", "right"
		return [2]arm{modelRight, modelLeft}
	}
	modelLeft.label, modelRight.label = "left", "right"
	return [2]arm{modelLeft, modelRight}
}

func elbowAngle(lm Landmarks, a arm) (float64, bool) {
	pts, ok := lm.points(a.shoulder, a.elbow, a.wrist)
	if !ok {
		return 0, false
	}
	return Angle(xy(pts[0]), xy(pts[1]), xy(pts[2])), true
}

// elbowAngles returns the user's left and right elbow angles.
func elbowAngles(lm Landmarks, mirrored bool) (left, right float64, ok bool) {
	sides := arms(mirrored)
	left, okL := elbowAngle(lm, sides[0])
	right, okR := elbowAngle(lm, sides[1])
	return left, right, okL && okR
}

// AnalyzeElbows checks both arms independently against [ElbowMinDeg, ElbowMaxDeg]
// and names only the sides that fall outside it.
func AnalyzeElbows(lm Landmarks, cfg Config) Result {
	var failed, all []string
	for _, side := range arms(cfg.Mirrored) {
		deg, ok := elbowAngle(lm, side)
		if !ok {
			return unknown(KindElbowAngle, "elbow angle")
		}
		desc := fmt.Sprintf("%s %d°", side.label, int(deg))
		all = append(all, desc)
		if deg < cfg.ElbowMinDeg || deg > cfg.ElbowMaxDeg {
			failed = append(failed, desc)
		}
	}
	if len(failed) == 0 {
		return Result{Kind: KindElbowAngle, Status: StatusGood, Message: "Elbows OK: " + strings.Join(all, ", ")}
	}
	return Result{
		Kind:   KindElbowAngle,
		Status: StatusIssue,
		Message: fmt.Sprintf("Elbow angle out of range (%d-%d°): %s. Adjust your desk or chair height.",
			int(cfg.ElbowMinDeg), int(cfg.ElbowMaxDeg), strings.Join(failed, ", ")),
	}
}

// gazeDrop is how far the nose sits below the eye line; positive means head tilted down.
func gazeDrop(lm Landmarks) (float64, bool) {
	pts, ok := lm.points(Nose, LeftEye, RightEye)
	if !ok {
		return 0, false
	}
	eyeY := (pts[1].Y + pts[2].Y) / 2
	return pts[0].Y - eyeY, true
}

// AnalyzeGaze flags a downward gaze when the nose drops below the eye line by more than cfg.EyeDownDiff.
func AnalyzeGaze(lm Landmarks, cfg Config) Result {
	diff, ok := gazeDrop(lm)
	if !ok {
		return unknown(KindGazeDown, "eye level")
	}
	if diff > cfg.EyeDownDiff {
		return Result{
			Kind:   KindGazeDown,
			Status: StatusIssue,
			Message: fmt.Sprintf("Looking down: nose %.3f below eye line (max %.3f). Raise your screen to eye level.",
				diff, cfg.EyeDownDiff),
		}
	}
	return Result{Kind: KindGazeDown, Status: StatusGood, Message: fmt.Sprintf("Eye level OK: %.3f", diff)}
}

// Measurements are the raw values behind each rule, used for calibration.
// Elbow angles are NaN when the arms are out of view.
type Measurements struct {
	NeckAngle     float64
	ShoulderDepth float64
	GazeDrop      float64
	LeftElbow     float64
	RightElbow    float64
}

// Measure computes every rule's raw value. ok is false if the head, shoulder
// or gaze landmarks are unusable; arms often leave a webcam's view and only
// blank the elbow fields.
func Measure(lm Landmarks, mirrored bool) (Measurements, bool) {
	if len(lm) != LandmarkCount {
		return Measurements{}, false
	}
	var m Measurements
	var ok [3]bool
	m.NeckAngle, ok[0] = neckAngle(lm)
	m.ShoulderDepth, ok[1] = shoulderDepth(lm)
	m.GazeDrop, ok[2] = gazeDrop(lm)

	left, right, armsOK := elbowAngles(lm, mirrored)
	if !armsOK {
		left, right = math.NaN(), math.NaN()
	}
	m.LeftElbow, m.RightElbow = left, right
	return m, ok[0] && ok[1] && ok[2]
}
