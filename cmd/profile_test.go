package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/andresmejia3/posturewatch/internal/store"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestWriteProfiles_Empty(t *testing.T) {
	var buf bytes.Buffer
	writeProfiles(&buf, nil)
	if !strings.Contains(buf.String(), "No profiles found") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

// TestProfileCommands runs the profile commands and profile-based config
// resolution against a real Postgres container.
func TestProfileCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("posturewatch_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer pgContainer.Terminate(ctx)

	connStr, _ := pgContainer.ConnectionString(ctx, "sslmode=disable")
	db, err := store.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	DB = db
	defer func() {
		db.Close(ctx)
		DB = nil
	}()

	cfg := posture.DefaultConfig()
	cfg.CVAMinDeg = 78
	cfg.SlumpZ = -0.12
	if err := db.SaveProfile(ctx, "desk", cfg, 42); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	var buf bytes.Buffer
	if err := runProfileList(ctx, &buf); err != nil {
		t.Fatalf("profile list failed: %v", err)
	}
	if !strings.Contains(buf.String(), "desk") || !strings.Contains(buf.String(), "78.0°") {
		t.Errorf("profile list output missing profile:\n%s", buf.String())
	}

	buf.Reset()
	if err := runProfileShow(ctx, &buf, "desk"); err != nil {
		t.Fatalf("profile show failed: %v", err)
	}
	if !strings.Contains(buf.String(), "-0.120") || !strings.Contains(buf.String(), "42") {
		t.Errorf("profile show output incomplete:\n%s", buf.String())
	}

	// Profile overrides defaults; explicit settings override the profile.
	freshViper(t)
	v.Set("profile", "desk")
	v.Set("elbow-max", 115.0)
	got, err := resolveConfig(ctx)
	if err != nil {
		t.Fatalf("resolveConfig failed: %v", err)
	}
	if got.CVAMinDeg != 78 || got.SlumpZ != -0.12 {
		t.Errorf("profile thresholds not applied: %+v", got)
	}
	if got.ElbowMaxDeg != 115 {
		t.Errorf("ElbowMaxDeg = %v, want explicit 115", got.ElbowMaxDeg)
	}

	if err := runProfileDelete(ctx, "desk"); err != nil {
		t.Fatalf("profile delete failed: %v", err)
	}
	if err := runProfileShow(ctx, &buf, "desk"); !errors.Is(err, store.ErrProfileNotFound) {
		t.Errorf("show after delete: got %v, want ErrProfileNotFound", err)
	}
	if _, err := resolveConfig(ctx); !errors.Is(err, store.ErrProfileNotFound) {
		t.Errorf("resolveConfig with a deleted profile: got %v, want ErrProfileNotFound", err)
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
