package recording

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"cfts/internal/calibration"
)

const (
	calibrationFlat   = "flat"
	calibrationInterp = "interp"
)

// Epoch is one acquisition trial.
type Epoch struct {
	ID               int64
	ElicitorPolarity int
	ElicitorLevel    float64
	Samples          []float64
}

// File is an open recording.
type File struct {
	db   *sql.DB
	path string
}

// Open opens an existing recording for reading.
func Open(ctx context.Context, path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open recording: %w", err)
		}
		return nil, fmt.Errorf("stat recording: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open recording: %s is a directory", path)
	}
	f, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := f.checkSchema(ctx); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Create makes a new empty recording at path. An existing file is an error.
func Create(ctx context.Context, path string, sampleRate float64) (*File, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create recording: %s already exists", path)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("create recording: sample rate %v must be positive", sampleRate)
	}
	f, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := f.createSchema(ctx); err != nil {
		_ = f.Close()
		return nil, err
	}
	_, err = f.db.ExecContext(ctx,
		"INSERT INTO recording (id, sample_rate, created_at) VALUES (1, ?, ?)",
		sampleRate, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("insert recording row: %w", err)
	}
	return f, nil
}

func openDB(path string) (*File, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	return &File{db: db, path: path}, nil
}

// Path returns the file path the recording was opened from.
func (f *File) Path() string { return f.path }

// Close closes the underlying database connection.
func (f *File) Close() error {
	if f == nil || f.db == nil {
		return nil
	}
	return f.db.Close()
}

// SampleRate returns the acquisition rate in Hz.
func (f *File) SampleRate(ctx context.Context) (float64, error) {
	var rate float64
	if err := f.db.QueryRowContext(ctx, "SELECT sample_rate FROM recording WHERE id = 1").Scan(&rate); err != nil {
		return 0, fmt.Errorf("read sample rate: %w", err)
	}
	return rate, nil
}

// SetSource records where the data came from, e.g. an imported WAV path.
func (f *File) SetSource(ctx context.Context, source string) error {
	if _, err := f.db.ExecContext(ctx, "UPDATE recording SET source = ? WHERE id = 1", source); err != nil {
		return fmt.Errorf("set source: %w", err)
	}
	return nil
}

// Source returns the recorded data source, empty when unset.
func (f *File) Source(ctx context.Context) (string, error) {
	var source sql.NullString
	if err := f.db.QueryRowContext(ctx, "SELECT source FROM recording WHERE id = 1").Scan(&source); err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return source.String, nil
}

// PutSetting stores or replaces a numeric setting.
func (f *File) PutSetting(ctx context.Context, name string, value float64) error {
	_, err := f.db.ExecContext(ctx,
		"INSERT INTO settings (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value",
		name, value,
	)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", name, err)
	}
	return nil
}

// Setting returns one numeric setting.
func (f *File) Setting(ctx context.Context, name string) (float64, error) {
	var value float64
	err := f.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrMissingSetting, name)
	}
	if err != nil {
		return 0, fmt.Errorf("read setting %s: %w", name, err)
	}
	return value, nil
}

// Settings returns every stored setting.
func (f *File) Settings(ctx context.Context) (map[string]float64, error) {
	rows, err := f.db.QueryContext(ctx, "SELECT name, value FROM settings ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// SetFlatCalibration stores a frequency-independent microphone calibration.
func (f *File) SetFlatCalibration(ctx context.Context, cal *calibration.FlatCalibration) error {
	attrs, err := json.Marshal(cal.Attrs())
	if err != nil {
		return fmt.Errorf("encode calibration attrs: %w", err)
	}
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin calibration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM calibration_points"); err != nil {
		return fmt.Errorf("clear calibration points: %w", err)
	}
	var mvPerPa any
	if cal.MVPerPa > 0 {
		mvPerPa = cal.MVPerPa
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE recording SET calibration_kind = ?, sensitivity_db = ?, mv_per_pa = ?, calibration_attrs = ? WHERE id = 1",
		calibrationFlat, cal.SensitivityDB, mvPerPa, string(attrs),
	)
	if err != nil {
		return fmt.Errorf("store flat calibration: %w", err)
	}
	return tx.Commit()
}

// SetInterpCalibration stores a frequency-dependent microphone calibration.
func (f *File) SetInterpCalibration(ctx context.Context, cal *calibration.InterpCalibration) error {
	attrs, err := json.Marshal(cal.Attrs())
	if err != nil {
		return fmt.Errorf("encode calibration attrs: %w", err)
	}
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin calibration tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM calibration_points"); err != nil {
		return fmt.Errorf("clear calibration points: %w", err)
	}
	for i, freq := range cal.Frequencies {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO calibration_points (frequency, level) VALUES (?, ?)", freq, cal.Levels[i],
		); err != nil {
			return fmt.Errorf("insert calibration point: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE recording SET calibration_kind = ?, sensitivity_db = NULL, mv_per_pa = NULL, calibration_attrs = ? WHERE id = 1",
		calibrationInterp, string(attrs),
	)
	if err != nil {
		return fmt.Errorf("store interp calibration: %w", err)
	}
	return tx.Commit()
}

// MicrophoneCalibration returns the calibration stored with the recording.
func (f *File) MicrophoneCalibration(ctx context.Context) (calibration.Calibration, error) {
	var (
		kind     sql.NullString
		sensDB   sql.NullFloat64
		mvPerPa  sql.NullFloat64
		rawAttrs sql.NullString
	)
	err := f.db.QueryRowContext(ctx,
		"SELECT calibration_kind, sensitivity_db, mv_per_pa, calibration_attrs FROM recording WHERE id = 1",
	).Scan(&kind, &sensDB, &mvPerPa, &rawAttrs)
	if err != nil {
		return nil, fmt.Errorf("read calibration: %w", err)
	}
	var attrs calibration.Attrs
	if rawAttrs.Valid && rawAttrs.String != "" {
		if err := json.Unmarshal([]byte(rawAttrs.String), &attrs); err != nil {
			return nil, fmt.Errorf("decode calibration attrs: %w", err)
		}
	}

	switch kind.String {
	case calibrationFlat:
		if mvPerPa.Valid {
			return calibration.NewFlatFromMVPerPa(mvPerPa.Float64, attrs)
		}
		return calibration.NewFlat(sensDB.Float64, attrs), nil
	case calibrationInterp:
		freqs, levels, err := f.calibrationPoints(ctx)
		if err != nil {
			return nil, err
		}
		// Stored levels are already sensitivities, i.e. SPL at 1 Vrms.
		return calibration.NewInterpFromSPL(freqs, levels, 1, attrs)
	case "":
		return nil, fmt.Errorf("%w: %s", ErrNoCalibration, f.path)
	default:
		return nil, fmt.Errorf("%w: unknown calibration kind %q", ErrSchemaMismatch, kind.String)
	}
}

func (f *File) calibrationPoints(ctx context.Context) ([]float64, []float64, error) {
	rows, err := f.db.QueryContext(ctx, "SELECT frequency, level FROM calibration_points ORDER BY frequency")
	if err != nil {
		return nil, nil, fmt.Errorf("query calibration points: %w", err)
	}
	defer rows.Close()

	var freqs, levels []float64
	for rows.Next() {
		var freq, level float64
		if err := rows.Scan(&freq, &level); err != nil {
			return nil, nil, fmt.Errorf("scan calibration point: %w", err)
		}
		freqs = append(freqs, freq)
		levels = append(levels, level)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate calibration points: %w", err)
	}
	return freqs, levels, nil
}

// AddEpoch appends one epoch and returns its ID.
func (f *File) AddEpoch(ctx context.Context, polarity int, level float64, samples []float64) (int64, error) {
	res, err := f.db.ExecContext(ctx,
		"INSERT INTO epochs (elicitor_polarity, elicitor_level, samples) VALUES (?, ?, ?)",
		polarity, level, encodeSamples(samples),
	)
	if err != nil {
		return 0, fmt.Errorf("insert epoch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Epochs returns every epoch in insertion order.
func (f *File) Epochs(ctx context.Context) ([]Epoch, error) {
	rows, err := f.db.QueryContext(ctx,
		"SELECT id, elicitor_polarity, elicitor_level, samples FROM epochs ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("query epochs: %w", err)
	}
	defer rows.Close()

	var out []Epoch
	for rows.Next() {
		var (
			e    Epoch
			blob []byte
		)
		if err := rows.Scan(&e.ID, &e.ElicitorPolarity, &e.ElicitorLevel, &blob); err != nil {
			return nil, fmt.Errorf("scan epoch: %w", err)
		}
		samples, err := decodeSamples(blob)
		if err != nil {
			return nil, fmt.Errorf("epoch %d: %w", e.ID, err)
		}
		e.Samples = samples
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epochs: %w", err)
	}
	return out, nil
}

// Summary is a compact description of a recording.
type Summary struct {
	Path          string             `json:"path"`
	Source        string             `json:"source,omitempty"`
	SampleRate    float64            `json:"sample_rate"`
	Settings      map[string]float64 `json:"settings"`
	Epochs        int                `json:"epochs"`
	EpochSamples  int                `json:"epoch_samples"`
	Levels        []float64          `json:"elicitor_levels"`
	Calibration   string             `json:"calibration,omitempty"`
	CalibrationOK bool               `json:"calibration_ok"`
}

// Summarize reads the descriptive fields of the recording.
func (f *File) Summarize(ctx context.Context) (*Summary, error) {
	rate, err := f.SampleRate(ctx)
	if err != nil {
		return nil, err
	}
	source, err := f.Source(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := f.Settings(ctx)
	if err != nil {
		return nil, err
	}
	epochs, err := f.Epochs(ctx)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Path: f.path, Source: source, SampleRate: rate, Settings: settings, Epochs: len(epochs)}
	seen := make(map[float64]struct{})
	for _, e := range epochs {
		if len(e.Samples) > summary.EpochSamples {
			summary.EpochSamples = len(e.Samples)
		}
		if _, ok := seen[e.ElicitorLevel]; !ok {
			seen[e.ElicitorLevel] = struct{}{}
			summary.Levels = append(summary.Levels, e.ElicitorLevel)
		}
	}
	sort.Float64s(summary.Levels)
	if cal, err := f.MicrophoneCalibration(ctx); err == nil {
		summary.CalibrationOK = true
		attrs := cal.Attrs()
		summary.Calibration = attrs.Name
		if summary.Calibration == "" {
			summary.Calibration = fmt.Sprintf("%T", cal)
		}
	}
	return summary, nil
}

func encodeSamples(samples []float64) []byte {
	buf := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decodeSamples(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("sample blob length %d is not a multiple of 8", len(buf))
	}
	out := make([]float64, len(buf)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return out, nil
}
