package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/posturewatch/internal/feedback"
	"github.com/andresmejia3/posturewatch/internal/posture"
)

// noPerson is shown instead of posture lines while nobody is in frame.
const noPerson = "No person detected."

// summary accumulates per-kind statistics over a run.
type summary struct {
	Frames  int // frames analyzed, including skipped ones
	Present int // frames with a person
	Skipped int // frames the pose model rejected
	Unknown int // frames where at least one rule could not read its landmarks
	Active  map[posture.Kind]int
	Alerts  map[posture.Kind]int
	Elapsed time.Duration
}

func newSummary() *summary {
	return &summary{
		Active: make(map[posture.Kind]int),
		Alerts: make(map[posture.Kind]int),
	}
}

func (s *summary) record(d posture.Decision) {
	s.Frames++
	if !d.Present {
		return
	}
	s.Present++
	if len(d.Unknown()) > 0 {
		s.Unknown++
	}
	for _, r := range d.Results {
		if r.Active() {
			s.Active[r.Kind]++
		}
	}
	if d.Alert != nil {
		s.Alerts[d.Alert.Kind]++
	}
}

func (s *summary) skip() {
	s.Frames++
	s.Skipped++
}

// write prints the per-kind table in priority order.
func (s *summary) write(w io.Writer) {
	fmt.Fprintf(w, "\n📊 Posture Summary (%d frames, %d with a person", s.Frames, s.Present)
	if s.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", s.Skipped)
	}
	if s.Elapsed > 0 {
		fmt.Fprintf(w, ", %s", s.Elapsed.Round(time.Second))
	}
	fmt.Fprintln(w, ")")

	if s.Present == 0 {
		fmt.Fprintln(w, "   Nobody was in frame.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ISSUE\tFRAMES\tSHARE\tALERTS")
	for _, kind := range posture.Priority {
		share := 100 * float64(s.Active[kind]) / float64(s.Present)
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%d\n", kind, s.Active[kind], share, s.Alerts[kind])
	}
	tw.Flush()

	if s.Unknown > 0 {
		fmt.Fprintf(w, "   ⚠️  %d frames had landmarks some rules could not read\n", s.Unknown)
	}
}

// renderLines formats the display entries for one decision.
func renderLines(d posture.Decision) []string {
	if !d.Present {
		return []string{noPerson}
	}
	var out []string
	for _, issue := range d.Lines() {
		if issue.Kind == posture.KindNone {
			out = append(out, "✅ "+issue.Message)
			continue
		}
		out = append(out, fmt.Sprintf("%d. %s", issue.Severity, issue.Message))
	}
	return out
}

// displayKey identifies what is on screen; a new block is printed only when it changes.
// It is never empty, so the first frame always prints.
func displayKey(d posture.Decision) string {
	if !d.Present {
		return "-"
	}
	if d.AllGood() {
		return "OK"
	}
	kinds := make([]string, 0, len(d.Display))
	for _, issue := range d.Display {
		kinds = append(kinds, issue.Kind.String())
	}
	return strings.Join(kinds, ",")
}

// formatOffset renders a media timestamp as mm:ss.s
func formatOffset(d time.Duration) string {
	m := int(d / time.Minute)
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%02d:%04.1f", m, s)
}

// newFeedback builds the alert dispatcher: text to out, plus voice when speak is set.
// The returned function stops voice playback.
func newFeedback(out io.Writer, speak bool, cooldown time.Duration, logger *slog.Logger) (*feedback.Dispatcher, func()) {
	if !speak {
		return feedback.NewDispatcher(feedback.NewText(out)), func() {}
	}

	var speaker feedback.Speaker = feedback.DefaultCommandSpeaker()
	if url := v.GetString("tts-url"); url != "" {
		speaker = feedback.HTTPSpeaker{URL: url, APIKey: v.GetString("tts-key")}
	}
	voice := feedback.NewVoice(speaker, cooldown, feedback.WithLogger(logger))
	return feedback.NewDispatcher(feedback.NewText(out), voice), func() {
		voice.Close()
		st := voice.Stats()
		logger.Debug("voice feedback stopped", "played", st.Played, "skipped", st.Skipped, "dropped", st.Dropped, "failed", st.Failed)
	}
}
