package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/types"
	"github.com/andresmejia3/posturewatch/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var analyzeOpts Options

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a recorded video with parallel pose engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateAnalyzeFlags(analyzeOpts); err != nil {
			return err
		}
		cmd.SilenceUsage = true
		return runAnalyze(cmd.Context(), analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.InputPath, "input", "i", "", "Path to video")
	analyzeCmd.Flags().IntVarP(&analyzeOpts.NthFrame, "nth-frame", "n", 1, "Analyze every nth frame")
	analyzeCmd.Flags().IntVarP(&analyzeOpts.NumEngines, "engines", "e", 1, "Number of parallel pose engines")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Flip, "flip", false, "Flip frames horizontally before pose estimation")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Speak, "speak", false, "Speak alerts as well as printing them")
	addWorkerFlags(analyzeCmd, &analyzeOpts)

	analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}

func validateAnalyzeFlags(opts Options) error {
	if opts.InputPath == "" {
		return errors.New("--input is required")
	}
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", opts.InputPath)
	}
	if opts.NthFrame < 1 {
		return fmt.Errorf("--nth-frame must be at least 1, got %d", opts.NthFrame)
	}
	if opts.NumEngines < 1 {
		return fmt.Errorf("--engines must be at least 1, got %d", opts.NumEngines)
	}
	return validateWorkerFlags(opts)
}

// followFlip makes the elbow side mapping match the frames the pose model
// sees: a recording is mirrored only if --flip asks for it, unless --mirrored
// was set explicitly.
func followFlip(cfg *posture.Config, flip bool) {
	if !v.IsSet("mirrored") {
		cfg.Mirrored = flip
	}
}

// mediaTime maps a 1-based frame index to its offset from the start of the video.
func mediaTime(index int, fps float64) time.Duration {
	return time.Duration(float64(index-1) / fps * float64(time.Second))
}

// runAnalyze orchestrates offline analysis: engine pool, FFmpeg streaming, ordered aggregation and progress.
func runAnalyze(ctx context.Context, opts Options) error {
	cfg, err := resolveConfig(ctx)
	if err != nil {
		return err
	}
	followFlip(&cfg, opts.Flip)

	// 1. FPS drives the media clock the debouncer runs on
	fps, err := utils.GetVideoFPS(ctx, opts.InputPath)
	if err != nil {
		utils.ShowError("Failed to determine video FPS", err, nil)
		return err
	}

	// 2. Get total frames for progress bar
	totalVideoFrames := utils.GetTotalFrames(ctx, opts.InputPath)
	if totalVideoFrames <= 0 {
		// Fallback to a spinner if ffprobe fails
		totalVideoFrames = -1
	}

	fmt.Fprintf(os.Stderr, "📼 Analyzing %s (%.2f fps)\n", opts.InputPath, fps)
	fmt.Fprintf(os.Stderr, "⚙️  Spawning %d Pose Engines...\n", opts.NumEngines)

	bar := progressbar.NewOptions(totalVideoFrames,
		progressbar.OptionSetDescription("🔍 Analyzing posture"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskChan := make(chan types.FrameTask, opts.NumEngines)
	resultsChan := make(chan poseResult, opts.NumEngines*2)
	fail := &engineError{}
	var wg sync.WaitGroup

	// 3. Start Aggregator (Consumer)
	// Must run concurrently to prevent deadlock on resultsChan
	logger := slog.Default()
	dispatcher, stopFeedback := newFeedback(os.Stdout, opts.Speak, cfg.VoiceCooldown, logger)
	defer stopFeedback()

	sum := newSummary()
	aggDone := make(chan struct{})
	go func() {
		aggregate(resultsChan, posture.NewSession(cfg), opts.NthFrame, fps, sum, func(at time.Duration, a *posture.Alert) {
			bar.Clear()
			fmt.Fprintf(os.Stdout, "%s ", formatOffset(at))
			dispatcher.Deliver(a)
		})
		close(aggDone)
	}()

	// 4. Spawn the Engine Pool
	for i := 0; i < opts.NumEngines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			startEngine(ctx, id, opts.workerConfig(), taskChan, resultsChan, fail, cancel)
		}(i)
	}

	// 5. Start FFmpeg
	ffmpeg := utils.WrapCmd(utils.NewFFmpegCmd(ctx, opts.InputPath, 0, opts.Flip))
	ffmpegOut, err := ffmpeg.StdoutPipe()
	if err != nil {
		close(taskChan)
		wg.Wait()
		return fmt.Errorf("failed to create FFmpeg stdout pipe: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		close(taskChan)
		wg.Wait()
		utils.ShowError("Failed to start FFmpeg", err, nil)
		return err
	}

	// 6. Frame Splitter & Nth-Frame Logic
	scanner := bufio.NewScanner(ffmpegOut)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(utils.SplitJpeg)

	totalFrames := 0
	sentFrames := 0
feed:
	for scanner.Scan() {
		totalFrames++
		bar.Add(1)

		if totalFrames%opts.NthFrame != 0 {
			continue
		}
		buf := make([]byte, len(scanner.Bytes()))
		copy(buf, scanner.Bytes())
		select {
		case taskChan <- types.FrameTask{Index: totalFrames, Data: buf}:
			sentFrames++
		case <-ctx.Done():
			break feed
		}
	}
	scanErr := scanner.Err()
	if ctx.Err() != nil {
		// Unblock FFmpeg if we stopped reading early
		ffmpegOut.Close()
	}
	waitErr := ffmpeg.Wait()

	close(taskChan)
	wg.Wait()
	close(resultsChan)
	<-aggDone
	bar.Finish()

	// 7. Completion Check
	if fail.err != nil {
		utils.ShowError("Pose engine failed", fail.err, fail.cmd)
		return fail.err
	}
	if ctx.Err() != nil {
		fmt.Fprintf(os.Stderr, "\n🛑 Analysis interrupted after %d frames.\n", totalFrames)
		sum.write(os.Stderr)
		return ctx.Err()
	}
	if scanErr != nil {
		utils.ShowError("Frame scanner failed", scanErr, nil)
		return scanErr
	}
	if waitErr != nil {
		if ffmpeg.Stderr.Len() > 0 {
			fmt.Fprintf(os.Stderr, "\nFFmpeg Logs:\n%s\n", ffmpeg.Stderr.String())
		}
		utils.ShowError("FFmpeg execution failed", waitErr, nil)
		return waitErr
	}

	sum.Elapsed = mediaTime(totalFrames+1, fps)
	fmt.Fprintf(os.Stderr, "\n🏁 Analysis Complete. Processed %d of %d frames.\n", sentFrames, totalFrames)
	sum.write(os.Stderr)
	return nil
}

// aggregate feeds results to the session in frame order on the media clock and
// reports every alert with its offset into the video.
func aggregate(results <-chan poseResult, session *posture.Session, nth int, fps float64, sum *summary, onAlert func(time.Duration, *posture.Alert)) {
	// Any fixed origin works: the debouncer only looks at differences.
	origin := time.Unix(0, 0)
	queue := newReorder(nth, nth)

	for res := range results {
		for _, r := range queue.push(res) {
			if r.Skipped {
				sum.skip()
				continue
			}
			at := mediaTime(r.Index, fps)
			d := session.Step(r.Landmarks, origin.Add(at))
			sum.record(d)
			if d.Alert != nil {
				onAlert(at, d.Alert)
			}
		}
	}

	if n := queue.pending(); n > 0 {
		slog.Warn("frames never released in order", "count", n)
	}
}
