package migration

import (
	"context"

	"microbiogeo/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db sqlx.ExecerContext) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every
// statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db sqlx.ExecerContext) error {
	if err := r.createSchemaVersionTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create schema_version table")
	}

	if err := r.createStatResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create stat_results table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	if err := r.recordVersion(ctx, db); err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}

	return nil
}

func (r *MigrationRunner) createSchemaVersionTable(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (r *MigrationRunner) createStatResultsTable(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS stat_results (
			run_id UUID NOT NULL,
			position INTEGER NOT NULL,
			job_key TEXT NOT NULL,
			method TEXT NOT NULL,
			statistic_name TEXT NOT NULL DEFAULT '',
			statistic DOUBLE PRECISION,
			p_value DOUBLE PRECISION,
			permutations INTEGER NOT NULL DEFAULT 0,
			auxiliary JSONB NOT NULL DEFAULT '{}',
			payload JSONB,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (run_id, position)
		)`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db sqlx.ExecerContext) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_stat_results_created_at ON stat_results (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_stat_results_method ON stat_results (method)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *MigrationRunner) recordVersion(ctx context.Context, db sqlx.ExecerContext) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO schema_version (version) VALUES ($1)
		ON CONFLICT (version) DO NOTHING`, r.version)
	return err
}
