package feedback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/andresmejia3/posturewatch/internal/mailbox"
)

// Speaker turns text into audible speech. Speak blocks until playback ends
// or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// VoiceStats are the voice sink's operational counters.
type VoiceStats struct {
	Accepted uint64 // passed the cooldown
	Skipped  uint64 // rejected by the cooldown
	Dropped  uint64 // replaced before playback started
	Played   uint64
	Failed   uint64
}

// Voice speaks alerts with its own cooldown, independent of the debouncer.
//
// Playback runs on one background goroutine fed by a single-slot mailbox:
// at most one message plays at a time, and a newer message overwrites one
// that has not started yet.
type Voice struct {
	speaker  Speaker
	cooldown time.Duration
	now      func() time.Time
	logger   *slog.Logger
	inbox    *mailbox.Slot[string]

	mu         sync.Mutex
	lastSpoken time.Time
	spoken     bool
	stats      VoiceStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// VoiceOption configures a Voice.
type VoiceOption func(*Voice)

// WithClock replaces time.Now for cooldown checks.
func WithClock(now func() time.Time) VoiceOption {
	return func(v *Voice) { v.now = now }
}

// WithLogger sets the logger used for playback failures.
func WithLogger(l *slog.Logger) VoiceOption {
	return func(v *Voice) { v.logger = l }
}

// NewVoice starts the playback goroutine. Call Close to stop it.
func NewVoice(speaker Speaker, cooldown time.Duration, opts ...VoiceOption) *Voice {
	v := &Voice{
		speaker:  speaker,
		cooldown: cooldown,
		now:      time.Now,
		logger:   slog.Default(),
		inbox:    mailbox.New[string](),
	}
	for _, o := range opts {
		o(v)
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())

	v.wg.Add(1)
	go v.playbackLoop()
	return v
}

// Notify queues message for speech unless the cooldown since the last
// accepted message has not elapsed. It never blocks on playback.
func (v *Voice) Notify(message string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.inbox.Closed() {
		return false
	}
	now := v.now()
	if v.spoken && now.Sub(v.lastSpoken) < v.cooldown {
		v.stats.Skipped++
		return false
	}
	if !v.inbox.Put(message) {
		return false
	}
	v.lastSpoken = now
	v.spoken = true
	v.stats.Accepted++
	return true
}

func (v *Voice) playbackLoop() {
	defer v.wg.Done()
	for {
		msg, ok := v.inbox.Take()
		if !ok {
			return
		}

		err := v.speak(msg)
		if err != nil && v.ctx.Err() == nil {
			v.logger.Warn("voice feedback failed", "error", err)
		}

		v.mu.Lock()
		if err != nil {
			v.stats.Failed++
		} else {
			v.stats.Played++
		}
		v.mu.Unlock()
	}
}

// speak isolates the speaker so a panicking backend cannot take the process down.
func (v *Voice) speak(msg string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("voice feedback panicked", "panic", r)
			err = errPanic
		}
	}()
	return v.speaker.Speak(v.ctx, msg)
}

// Stats returns a snapshot of the counters.
func (v *Voice) Stats() VoiceStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.stats
	s.Dropped = v.inbox.Drops()
	return s
}

// Close abandons any in-flight playback, discards a pending message and
// waits for the playback goroutine to exit. Safe to call more than once.
func (v *Voice) Close() {
	v.inbox.Abandon()
	v.cancel()
	v.wg.Wait()
}
