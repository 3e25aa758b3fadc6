package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/store"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/andresmejia3/posturewatch/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// minCalibrationSamples is the fewest usable frames a profile can be derived from.
const minCalibrationSamples = 10

// Calibration margins: a threshold sits at least this far from the neutral mean.
const (
	cvaMargin   = 5.0
	gazeMargin  = 0.02
	slumpMargin = 0.1
)

var calibrateOpts Options

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Derive personal thresholds from a few seconds of neutral posture",
	Long: `Sit upright, look at the screen and keep still. Calibrate samples your
neutral neck angle, shoulder depth and gaze, then saves thresholds a safe
margin away from them as the profile named by --profile. Elbow bounds and
timing are kept from the existing profile or the flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v.GetString("profile") == "" {
			return errors.New("--profile is required to name the calibration")
		}
		if calibrateOpts.Duration <= 0 {
			return fmt.Errorf("--duration must be positive, got %s", calibrateOpts.Duration)
		}
		if err := validateCaptureFlags(calibrateOpts); err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return runCalibrate(cmd.Context(), calibrateOpts)
	},
}

func init() {
	addCaptureFlags(calibrateCmd, &calibrateOpts)
	addWorkerFlags(calibrateCmd, &calibrateOpts)
	calibrateCmd.Flags().DurationVar(&calibrateOpts.Duration, "duration", 10*time.Second, "How long to sample neutral posture")

	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(ctx context.Context, opts Options) error {
	name := v.GetString("profile")
	db, err := openStore(ctx)
	if err != nil {
		return err
	}

	// Recalibrating keeps whatever the old profile says about elbows and timing.
	base := posture.DefaultConfig()
	existing, err := db.GetProfile(ctx, name)
	switch {
	case err == nil:
		base = existing.Config
	case !errors.Is(err, store.ErrProfileNotFound):
		return err
	}
	applyExplicit(&base)
	if err := base.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "🧘 Sit upright and look at the screen for %s...\n", opts.Duration)
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("📐 Sampling neutral posture"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	sampleCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	var samples []posture.Measurements
	err = runLive(sampleCtx, opts, base.Mirrored, func(_ types.FrameTask, lm posture.Landmarks) bool {
		if m, ok := posture.Measure(lm, base.Mirrored); ok {
			samples = append(samples, m)
			bar.Add(1)
		}
		return true
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	// The sampling timeout is the normal end; only the parent being cancelled aborts.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	cfg, err := deriveProfile(samples, base)
	if err != nil {
		return err
	}
	if err := db.SaveProfile(ctx, name, cfg, len(samples)); err != nil {
		utils.ShowError("Failed to save profile", err, nil)
		return err
	}

	fmt.Fprintf(os.Stderr, "💾 Saved profile %q from %d frames\n", name, len(samples))
	writeCalibration(os.Stdout, base, cfg)
	return nil
}

// deriveProfile places each calibrated threshold a margin away from the neutral
// mean: the larger of two standard deviations or a fixed floor.
func deriveProfile(samples []posture.Measurements, base posture.Config) (posture.Config, error) {
	if len(samples) < minCalibrationSamples {
		return base, fmt.Errorf("only %d usable frames, need at least %d: make sure your head and shoulders are in view", len(samples), minCalibrationSamples)
	}

	neck := make([]float64, len(samples))
	depth := make([]float64, len(samples))
	gaze := make([]float64, len(samples))
	for i, m := range samples {
		neck[i] = m.NeckAngle
		depth[i] = m.ShoulderDepth
		gaze[i] = m.GazeDrop
	}

	cfg := base
	mean, sd := stat.MeanStdDev(neck, nil)
	cfg.CVAMinDeg = math.Max(0, mean-math.Max(2*sd, cvaMargin))

	mean, sd = stat.MeanStdDev(gaze, nil)
	cfg.EyeDownDiff = mean + math.Max(2*sd, gazeMargin)

	mean, sd = stat.MeanStdDev(depth, nil)
	cfg.SlumpZ = mean - math.Max(2*sd, slumpMargin)

	return cfg, cfg.Validate()
}

// writeCalibration prints the old and new thresholds side by side.
func writeCalibration(w io.Writer, before, after posture.Config) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "THRESHOLD\tBEFORE\tAFTER")
	fmt.Fprintf(tw, "cva-min\t%.1f°\t%.1f°\n", before.CVAMinDeg, after.CVAMinDeg)
	fmt.Fprintf(tw, "eye-down\t%.3f\t%.3f\n", before.EyeDownDiff, after.EyeDownDiff)
	fmt.Fprintf(tw, "slump-z\t%.3f\t%.3f\n", before.SlumpZ, after.SlumpZ)
	fmt.Fprintf(tw, "elbows\t%.0f-%.0f°\t%.0f-%.0f°\n", before.ElbowMinDeg, before.ElbowMaxDeg, after.ElbowMinDeg, after.ElbowMaxDeg)
	tw.Flush()
}
