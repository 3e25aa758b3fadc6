package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/spf13/cobra"
)

var replayOpts Options

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run recorded landmark frames (JSON Lines) through the classifier",
	Long: `Replay reads one JSON object per line:

  {"t": 1.5, "landmarks": [[x, y, z], ...]}

where t is seconds since the start of the recording and landmarks holds 33
records, or none when nobody was in frame. No pose model is needed.
Use "-" to read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayOpts.InputPath == "" {
			return errors.New("--input is required")
		}
		cmd.SilenceUsage = true
		return runReplay(cmd.Context(), replayOpts)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayOpts.InputPath, "input", "i", "", "Path to a JSON Lines recording, or - for stdin")
	replayCmd.Flags().BoolVar(&replayOpts.Speak, "speak", false, "Speak alerts as well as printing them")

	replayCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, opts Options) error {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if opts.InputPath != "-" {
		f, err := os.Open(opts.InputPath)
		if err != nil {
			return fmt.Errorf("cannot open recording: %w", err)
		}
		defer f.Close()
		in = f
	}

	dispatcher, stopFeedback := newFeedback(os.Stdout, opts.Speak, cfg.VoiceCooldown, slog.Default())
	defer stopFeedback()

	sum := newSummary()
	err = replayFrames(ctx, in, posture.NewSession(cfg), sum, func(at time.Duration, a *posture.Alert) {
		fmt.Fprintf(os.Stdout, "%s ", formatOffset(at))
		dispatcher.Deliver(a)
	})
	sum.write(os.Stderr)
	return err
}

// replayFrames feeds every recorded frame to session on the recording's clock.
// Unreadable lines are counted as skipped frames and logged.
func replayFrames(ctx context.Context, r io.Reader, session *posture.Session, sum *summary, onAlert func(time.Duration, *posture.Alert)) error {
	origin := time.Unix(0, 0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), megabyte)

	line := 0
	var last time.Duration
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var rec types.RecordedFrame
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			slog.Warn("skipping malformed recording line", "line", line, "err", err)
			sum.skip()
			continue
		}
		if math.IsNaN(rec.T) || math.IsInf(rec.T, 0) || rec.T < 0 {
			slog.Warn("skipping frame with invalid timestamp", "line", line, "t", rec.T)
			sum.skip()
			continue
		}
		lm, err := rec.Landmarks.ToLandmarks()
		if err != nil {
			slog.Warn("skipping frame", "line", line, "err", err)
			sum.skip()
			continue
		}

		at := time.Duration(rec.T * float64(time.Second))
		if at < last {
			slog.Debug("timestamp went backwards", "line", line, "t", rec.T)
		}
		last = at

		d := session.Step(lm, origin.Add(at))
		sum.record(d)
		if d.Alert != nil {
			onAlert(at, d.Alert)
		}
	}
	sum.Elapsed = last
	return scanner.Err()
}
