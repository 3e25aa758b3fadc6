package posture

// MaxDisplay caps how many simultaneous issues are shown on screen.
const MaxDisplay = 3

// Rule evaluates one posture dimension for one frame.
type Rule func(Landmarks, Config) Result

var rules = map[Kind]Rule{
	KindNeckForward:   AnalyzeHead,
	KindShoulderRound: AnalyzeShoulders,
	KindGazeDown:      AnalyzeGaze,
	KindElbowAngle:    AnalyzeElbows,
}

// Frame is the aggregated classification of one landmark set.
type Frame struct {
	// Results holds one entry per rule in Priority order. Empty when no person was detected.
	Results []Result
	// Leading is the first active issue in Priority order, nil if there is none.
	Leading *Issue
	// Display holds up to MaxDisplay active issues in Priority order.
	Display []Issue
}

// Analyze runs every rule against lm in Priority order.
// An empty landmark set yields an empty Frame.
func Analyze(lm Landmarks, cfg Config) Frame {
	var f Frame
	if !lm.Present() {
		return f
	}
	f.Results = make([]Result, 0, len(Priority))
	for _, kind := range Priority {
		res := rules[kind](lm, cfg)
		f.Results = append(f.Results, res)
		if !res.Active() {
			continue
		}
		issue := res.issue()
		if f.Leading == nil {
			f.Leading = &issue
		}
		if len(f.Display) < MaxDisplay {
			f.Display = append(f.Display, issue)
		}
	}
	return f
}

// Unknown returns the rules that could not read their landmarks this frame.
func (f Frame) Unknown() []Kind {
	var out []Kind
	for _, r := range f.Results {
		if r.Status == StatusUnknown {
			out = append(out, r.Kind)
		}
	}
	return out
}
