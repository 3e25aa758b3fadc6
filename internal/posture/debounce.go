package posture

import "time"

// State is the debouncer's memory. The zero value is IDLE.
// It is owned by exactly one decision loop; nothing here is shared.
type State struct {
	Tracked   Kind      // KindNone when idle
	Since     time.Time // when Tracked became the leading issue, or the last alert for it
	LastAlert time.Time
}

// Idle reports whether no issue is being tracked.
func (s State) Idle() bool {
	return s.Tracked == KindNone
}

// Alert is a debounced, user-facing notification.
type Alert struct {
	Kind    Kind
	Message string
	At      time.Time

	// Held is how long the issue had been leading when the alert fired.
	Held time.Duration
}

// Debounce advances the state machine by one frame.
//
//   - no leading issue: back to IDLE
//   - a different issue leads: start tracking it from now, no alert
//   - the same issue has led for at least persistence: alert and restart the timer
//
// Restarting the timer makes the same issue wait a full persistence period
// before it can alert again.
func Debounce(state State, leading *Issue, now time.Time, persistence time.Duration) (State, *Alert) {
	if leading == nil || leading.Kind == KindNone {
		return State{LastAlert: state.LastAlert}, nil
	}
	if leading.Kind != state.Tracked {
		return State{Tracked: leading.Kind, Since: now, LastAlert: state.LastAlert}, nil
	}
	held := now.Sub(state.Since)
	if held < persistence {
		return state, nil
	}
	alert := &Alert{Kind: leading.Kind, Message: leading.Message, At: now, Held: held}
	state.Since = now
	state.LastAlert = now
	return state, alert
}
