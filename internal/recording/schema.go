package recording

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

var (
	// ErrSchemaMismatch indicates the file is not a recording of the supported version.
	ErrSchemaMismatch = errors.New("recording schema version mismatch")
	// ErrMissingSetting reports a setting the reader asked for but the file lacks.
	ErrMissingSetting = errors.New("missing recording setting")
	// ErrNoCalibration reports a recording stored without a microphone calibration.
	ErrNoCalibration = errors.New("recording has no microphone calibration")
)

func (f *File) checkSchema(ctx context.Context) error {
	var tableExists int
	err := f.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return fmt.Errorf("%w: %s is not a cfts recording", ErrSchemaMismatch, f.path)
	}

	var version int
	err = f.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s has version %d, expected %d", ErrSchemaMismatch, f.path, version, schemaVersion)
	}
	return nil
}

func (f *File) createSchema(ctx context.Context) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
