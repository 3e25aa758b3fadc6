// Package feedback delivers debounced posture alerts to the user as text and speech.
//
// Delivery never blocks the frame loop: the text sink is a plain write and the
// voice sink hands messages to a single background playback goroutine.
// Delivery failures are logged and swallowed.
package feedback

import (
	"fmt"
	"io"
	"sync"

	"github.com/andresmejia3/posturewatch/internal/posture"
)

// Sink receives alert messages. Notify reports whether the message was accepted.
type Sink interface {
	Notify(message string) bool
}

// Text prints alerts as console lines.
type Text struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText writes feedback lines to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Notify prints the message. It always accepts.
func (t *Text) Notify(message string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[feedback]: %s\n", message)
	return true
}

// Dispatcher fans one alert out to every sink.
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher delivers to sinks in order. Nil sinks are skipped.
func NewDispatcher(sinks ...Sink) *Dispatcher {
	d := &Dispatcher{}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Deliver hands the alert message to every sink. A nil alert is ignored.
func (d *Dispatcher) Deliver(a *posture.Alert) {
	if a == nil {
		return
	}
	for _, s := range d.sinks {
		s.Notify(a.Message)
	}
}
