package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/posturewatch/internal/posture"
	"github.com/jackc/pgx/v5"
)

// ErrProfileNotFound is returned when no profile has the requested name.
var ErrProfileNotFound = errors.New("profile not found")

// Store manages the PostgreSQL connection holding calibration profiles.
// Only thresholds are stored; posture history never leaves the process.
type Store struct {
	conn *pgx.Conn
}

// Profile is a named set of thresholds, usually produced by calibration.
type Profile struct {
	Name      string
	Config    posture.Config
	Samples   int // frames the calibration was computed from, 0 if entered by hand
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the profile table if it doesn't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS posture_profiles (
			name TEXT PRIMARY KEY,
			cva_min DOUBLE PRECISION NOT NULL,
			elbow_min DOUBLE PRECISION NOT NULL,
			elbow_max DOUBLE PRECISION NOT NULL,
			eye_down DOUBLE PRECISION NOT NULL,
			slump_z DOUBLE PRECISION NOT NULL,
			persistence_ms BIGINT NOT NULL,
			voice_cooldown_ms BIGINT NOT NULL,
			mirrored BOOLEAN NOT NULL DEFAULT TRUE,
			samples INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SaveProfile inserts the profile or replaces the thresholds of an existing one.
func (s *Store) SaveProfile(ctx context.Context, name string, cfg posture.Config, samples int) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO posture_profiles (name, cva_min, elbow_min, elbow_max, eye_down, slump_z,
			persistence_ms, voice_cooldown_ms, mirrored, samples, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET
			cva_min = EXCLUDED.cva_min,
			elbow_min = EXCLUDED.elbow_min,
			elbow_max = EXCLUDED.elbow_max,
			eye_down = EXCLUDED.eye_down,
			slump_z = EXCLUDED.slump_z,
			persistence_ms = EXCLUDED.persistence_ms,
			voice_cooldown_ms = EXCLUDED.voice_cooldown_ms,
			mirrored = EXCLUDED.mirrored,
			samples = EXCLUDED.samples,
			updated_at = NOW()
	`, name, cfg.CVAMinDeg, cfg.ElbowMinDeg, cfg.ElbowMaxDeg, cfg.EyeDownDiff, cfg.SlumpZ,
		cfg.Persistence.Milliseconds(), cfg.VoiceCooldown.Milliseconds(), cfg.Mirrored, samples)
	return err
}

const profileColumns = `name, cva_min, elbow_min, elbow_max, eye_down, slump_z,
	persistence_ms, voice_cooldown_ms, mirrored, samples, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var persistenceMs, cooldownMs int64
	err := row.Scan(&p.Name, &p.Config.CVAMinDeg, &p.Config.ElbowMinDeg, &p.Config.ElbowMaxDeg,
		&p.Config.EyeDownDiff, &p.Config.SlumpZ, &persistenceMs, &cooldownMs, &p.Config.Mirrored,
		&p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, err
	}
	p.Config.Persistence = time.Duration(persistenceMs) * time.Millisecond
	p.Config.VoiceCooldown = time.Duration(cooldownMs) * time.Millisecond
	return p, nil
}

// GetProfile loads one profile by name.
func (s *Store) GetProfile(ctx context.Context, name string) (Profile, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+profileColumns+` FROM posture_profiles WHERE name = $1`, name)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, err
}

// ListProfiles returns every profile ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.conn.Query(ctx, `SELECT `+profileColumns+` FROM posture_profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProfile removes a profile. Deleting a missing profile returns ErrProfileNotFound.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM posture_profiles WHERE name = $1", name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS posture_profiles CASCADE;`)
	return err
}
