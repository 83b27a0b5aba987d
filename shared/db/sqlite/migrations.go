package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dfryer1193/ndar/shared/db"
	"github.com/rs/zerolog/log"
)

// migration represents a single database migration
type migration struct {
	version int
	name    string
	up      string
}

// migrations is the ordered list of all database migrations
// Each migration should be idempotent and safe to run multiple times
var migrations = []migration{
	{
		version: 1,
		name:    "create_image03_table",
		up: `
			CREATE TABLE IF NOT EXISTS image03 (
				subjectkey TEXT,
				src_subject_id TEXT,
				interview_date TEXT,
				interview_age TEXT,
				gender TEXT,
				comments_misc TEXT,
				image_file TEXT NOT NULL,
				image_thumbnail_file TEXT,
				image_description TEXT,
				experiment_id TEXT,
				scan_type TEXT,
				scan_object TEXT,
				image_file_format TEXT,
				data_file2 TEXT,
				data_file2_type TEXT,
				image_modality TEXT,
				scanner_manufacturer_pd TEXT,
				scanner_type_pd TEXT,
				magnetic_field_strength TEXT,
				mri_repetition_time_pd TEXT,
				mri_echo_time_pd TEXT,
				flip_angle TEXT,
				image_num_dimensions TEXT,
				image_extent1 TEXT,
				image_extent2 TEXT,
				image_extent3 TEXT,
				image_resolution1 TEXT,
				image_resolution2 TEXT,
				image_resolution3 TEXT,
				image_unit1 TEXT,
				image_unit2 TEXT,
				image_unit3 TEXT
			);
		`,
	},
	{
		version: 2,
		name:    "index_image03_subjectkey",
		up: `
			CREATE INDEX IF NOT EXISTS idx_image03_subjectkey
			ON image03(subjectkey);
		`,
	},
}

// runMigrations applies every migration newer than the recorded schema version
func runMigrations(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return err
		}
		log.Info().Int("version", m.version).Str("name", m.name).Msg("Applied migration")
	}

	return nil
}

// applyMigration runs one migration and records it in the same transaction
func applyMigration(conn *sql.DB, m migration) error {
	return db.RunInTransaction(context.Background(), conn, func(ctx context.Context) error {
		executor := db.GetExecutor(ctx, conn)

		if _, err := executor.ExecContext(ctx, m.up); err != nil {
			return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
		}

		_, err := executor.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			m.version,
			m.name,
		)
		if err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		return nil
	})
}
