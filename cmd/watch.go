package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var watchOpts Options

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor posture live from the webcam",
	Long: `Watch samples the webcam, classifies every frame and prints the current
posture issues whenever they change. An issue that keeps leading for the
persistence period raises an alert, printed and spoken aloud.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateCaptureFlags(watchOpts); err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return runWatch(cmd.Context(), watchOpts)
	},
}

func init() {
	addCaptureFlags(watchCmd, &watchOpts)
	addWorkerFlags(watchCmd, &watchOpts)
	watchCmd.Flags().BoolVar(&watchOpts.Mute, "mute", false, "Disable spoken alerts")
	watchCmd.Flags().DurationVar(&watchOpts.Duration, "duration", 0, "Stop after this long (0 runs until Ctrl+C)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(ctx context.Context, opts Options) error {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	sessionID := uuid.NewString()
	logger := slog.Default().With("session", sessionID[:8])
	dispatcher, stopFeedback := newFeedback(os.Stdout, !opts.Mute, cfg.VoiceCooldown, logger)
	defer stopFeedback()

	fmt.Fprintf(os.Stderr, "🧍 Session %s: neck ≥ %.0f°, elbows %.0f-%.0f°, alert after %s\n",
		sessionID[:8], cfg.CVAMinDeg, cfg.ElbowMinDeg, cfg.ElbowMaxDeg, cfg.Persistence)

	session := posture.NewSession(cfg)
	sum := newSummary()
	started := time.Now()
	lastKey := ""

	err = runLive(ctx, opts, cfg.Mirrored, func(task types.FrameTask, lm posture.Landmarks) bool {
		d := session.Step(lm, task.Captured)
		sum.record(d)
		if unknown := d.Unknown(); len(unknown) > 0 {
			logger.Debug("rules could not read landmarks", "frame", task.Index, "rules", unknown)
		}

		if key := displayKey(d); key != lastKey {
			lastKey = key
			fmt.Fprintf(os.Stdout, "[%s]\n", task.Captured.Format("15:04:05"))
			for _, line := range renderLines(d) {
				fmt.Fprintf(os.Stdout, "  %s\n", line)
			}
		}
		dispatcher.Deliver(d.Alert)
		return true
	})

	sum.Elapsed = time.Since(started)
	sum.write(os.Stderr)
	return err
}
