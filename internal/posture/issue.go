package posture

// Kind identifies a posture dimension. KindNone means no issue.
type Kind int

const (
	KindNone Kind = iota
	KindNeckForward
	KindShoulderRound
	KindGazeDown
	KindElbowAngle
)

var kindNames = map[Kind]string{
	KindNone:          "NONE",
	KindNeckForward:   "NECK_FORWARD",
	KindShoulderRound: "SHOULDER_ROUND",
	KindGazeDown:      "GAZE_DOWN",
	KindElbowAngle:    "ELBOW_ANGLE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// Priority is the order in which rules are evaluated and issues are ranked.
// The first active entry is the leading issue.
var Priority = []Kind{
	KindNeckForward,
	KindShoulderRound,
	KindGazeDown,
	KindElbowAngle,
}

// Severity returns the 1-based rank of k in Priority (1 is most severe),
// or 0 for KindNone.
func (k Kind) Severity() int {
	for i, p := range Priority {
		if p == k {
			return i + 1
		}
	}
	return 0
}

// Status is the outcome of a single rule.
type Status int

const (
	StatusGood Status = iota
	StatusIssue
	// StatusUnknown means the rule could not read its landmarks and failed closed.
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "GOOD"
	case StatusIssue:
		return "ISSUE"
	default:
		return "UNKNOWN"
	}
}

// Result is what one rule evaluator reports for one frame.
type Result struct {
	Kind    Kind
	Status  Status
	Message string
}

// Active reports whether the result is a posture problem.
func (r Result) Active() bool {
	return r.Status == StatusIssue
}

// Issue is an active result ready for display or alerting.
type Issue struct {
	Kind     Kind
	Severity int
	Message  string
}

func (r Result) issue() Issue {
	return Issue{Kind: r.Kind, Severity: r.Kind.Severity(), Message: r.Message}
}
