package posture

import "time"

// GoodPosture is the single display entry shown when a person is detected and nothing is wrong.
const GoodPosture = "Good posture."

// Decision is everything one frame produces for the presentation and alert collaborators.
type Decision struct {
	Frame
	Present bool
	Alert   *Alert
}

// AllGood reports whether a person was seen and no rule flagged an issue.
func (d Decision) AllGood() bool {
	return d.Present && d.Leading == nil
}

// Lines returns the display entries: the active issues, or a single
// GoodPosture entry with severity 0, or nothing when no person was detected.
func (d Decision) Lines() []Issue {
	if d.AllGood() {
		return []Issue{{Kind: KindNone, Message: GoodPosture}}
	}
	return d.Display
}

// Step classifies one frame and advances the debouncer. It is pure: the
// caller owns state and passes it back in on the next frame.
func Step(cfg Config, state State, lm Landmarks, now time.Time) (State, Decision) {
	frame := Analyze(lm, cfg)
	next, alert := Debounce(state, frame.Leading, now, cfg.Persistence)
	return next, Decision{Frame: frame, Present: lm.Present(), Alert: alert}
}

// Session holds the debounce state for one tracked person.
// It is not safe for concurrent use; serialize frames per session.
type Session struct {
	cfg   Config
	state State
}

// NewSession starts an idle session.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg}
}

// Step processes one frame captured at now.
func (s *Session) Step(lm Landmarks, now time.Time) Decision {
	var d Decision
	s.state, d = Step(s.cfg, s.state, lm, now)
	return d
}

// State returns a copy of the current debounce state.
func (s *Session) State() State {
	return s.state
}

// Config returns the thresholds the session was built with.
func (s *Session) Config() Config {
	return s.cfg
}
