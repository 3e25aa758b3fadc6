package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// DB is the profile store, opened on demand by commands that need it
	DB *store.Store
	// dbURL is the connection string
	dbURL string
	// cfgFile is an optional config file read by viper
	cfgFile string

	v = viper.New()
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "posturewatch",
	Short:   "Webcam posture monitor with debounced text and voice alerts",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaults := posture.DefaultConfig()
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&dbURL, "db", "", "PostgreSQL connection string for profiles (default: postgres://localhost:5432/posturewatch)")
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	pf.String("profile", "", "Load thresholds from a saved calibration profile")
	pf.Bool("verbose", false, "Log debug details (skipped frames, unreadable landmarks)")

	pf.Float64("cva-min", defaults.CVAMinDeg, "Minimum neck angle in degrees before forward head is flagged")
	pf.Float64("elbow-min", defaults.ElbowMinDeg, "Minimum elbow angle in degrees")
	pf.Float64("elbow-max", defaults.ElbowMaxDeg, "Maximum elbow angle in degrees")
	pf.Float64("eye-down", defaults.EyeDownDiff, "Nose-below-eyes distance (normalized) before a downward gaze is flagged")
	pf.Float64("slump-z", defaults.SlumpZ, "Shoulder-minus-hip depth below which shoulders count as rounded (device dependent)")
	pf.Duration("persistence", defaults.Persistence, "How long the same issue must lead before an alert fires")
	pf.Duration("voice-cooldown", defaults.VoiceCooldown, "Minimum gap between spoken alerts")
	pf.Bool("mirrored", defaults.Mirrored, "Capture is flipped horizontally before pose estimation")

	pf.String("tts-url", "", "HTTP text-to-speech endpoint (default: local espeak-ng/say)")
	pf.String("tts-key", "", "API key for the HTTP text-to-speech endpoint")
}

// initConfig layers .env, environment, config file and flags into viper.
// Precedence: flag > POSTURE_* env > config file > default.
func initConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	v.SetEnvPrefix("POSTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	level := slog.LevelInfo
	if v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// thresholdKeys are the config keys that override a profile when explicitly set.
var thresholdKeys = []string{
	"cva-min", "elbow-min", "elbow-max", "eye-down", "slump-z",
	"persistence", "voice-cooldown", "mirrored",
}

// resolveConfig builds the posture thresholds: defaults, then the named
// profile, then anything set explicitly by flag, environment or config file.
func resolveConfig(ctx context.Context) (posture.Config, error) {
	cfg := posture.DefaultConfig()

	if name := v.GetString("profile"); name != "" {
		db, err := openStore(ctx)
		if err != nil {
			return cfg, err
		}
		p, err := db.GetProfile(ctx, name)
		if err != nil {
			return cfg, err
		}
		cfg = p.Config
		fmt.Fprintf(os.Stderr, "📐 Using profile %q\n", name)
	}

	applyExplicit(&cfg)
	return cfg, cfg.Validate()
}

// applyExplicit overrides cfg with every threshold the user actually set.
func applyExplicit(cfg *posture.Config) {
	for _, key := range thresholdKeys {
		if v.IsSet(key) {
			applyThreshold(cfg, key)
		}
	}
}

func applyThreshold(cfg *posture.Config, key string) {
	switch key {
	case "cva-min":
		cfg.CVAMinDeg = v.GetFloat64(key)
	case "elbow-min":
		cfg.ElbowMinDeg = v.GetFloat64(key)
	case "elbow-max":
		cfg.ElbowMaxDeg = v.GetFloat64(key)
	case "eye-down":
		cfg.EyeDownDiff = v.GetFloat64(key)
	case "slump-z":
		cfg.SlumpZ = v.GetFloat64(key)
	case "persistence":
		cfg.Persistence = v.GetDuration(key)
	case "voice-cooldown":
		cfg.VoiceCooldown = v.GetDuration(key)
	case "mirrored":
		cfg.Mirrored = v.GetBool(key)
	}
}

// openStore connects to PostgreSQL once per process.
func openStore(ctx context.Context) (*store.Store, error) {
	if DB != nil {
		return DB, nil
	}
	// If no flag was provided, try to build the connection string from the environment
	if dbURL == "" {
		dbURL = databaseURLFromEnv()
	}

	var err error
	DB, err = store.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return DB, nil
}

func databaseURLFromEnv() string {
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	// Fallback to local default if no env vars are present
	return "postgres://localhost:5432/posturewatch"
}
