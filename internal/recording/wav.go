package recording

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/youpy/go-wav"

	"cfts/internal/calibration"
)

// Sidecar describes the WAV data ImportWAV cannot infer from the audio.
type Sidecar struct {
	Settings    map[string]float64 `toml:"settings"`
	Calibration SidecarCalibration `toml:"calibration"`
	Epochs      []SidecarEpoch     `toml:"epoch"`
}

// SidecarCalibration holds either a flat sensitivity or a measured curve.
type SidecarCalibration struct {
	Name          string    `toml:"name"`
	MVPerPa       float64   `toml:"mv_per_pa"`
	SensitivityDB *float64  `toml:"sensitivity_db"`
	Frequencies   []float64 `toml:"frequencies"`
	Levels        []float64 `toml:"levels"`
}

// SidecarEpoch labels one equal-length segment of the WAV data.
type SidecarEpoch struct {
	Polarity int     `toml:"polarity"`
	Level    float64 `toml:"level"`
}

// LoadSidecar reads a sidecar TOML file.
func LoadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	var sidecar Sidecar
	if err := toml.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", path, err)
	}
	if len(sidecar.Epochs) == 0 {
		return nil, fmt.Errorf("sidecar %s: no [[epoch]] entries", path)
	}
	return &sidecar, nil
}

// DefaultSidecarPath returns the sidecar expected next to a WAV file.
func DefaultSidecarPath(wavPath string) string {
	ext := filepath.Ext(wavPath)
	return wavPath[:len(wavPath)-len(ext)] + ".toml"
}

// ImportWAV builds a recording at dbPath from a mono WAV file holding
// concatenated equal-length epochs and its TOML sidecar.
func ImportWAV(ctx context.Context, wavPath, sidecarPath, dbPath string) error {
	if sidecarPath == "" {
		sidecarPath = DefaultSidecarPath(wavPath)
	}
	sidecar, err := LoadSidecar(sidecarPath)
	if err != nil {
		return err
	}
	samples, rate, err := ReadWAV(wavPath)
	if err != nil {
		return err
	}
	n := len(sidecar.Epochs)
	if len(samples) == 0 || len(samples)%n != 0 {
		return fmt.Errorf("import %s: %d samples cannot be split into %d equal epochs", wavPath, len(samples), n)
	}
	epochLen := len(samples) / n

	cal, err := sidecar.Calibration.build(sidecarPath)
	if err != nil {
		return err
	}

	// Anything at dbPath predates this import and must survive its failure.
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("create recording: %s already exists", dbPath)
	}
	file, err := Create(ctx, dbPath, rate)
	if err != nil {
		removeDB(dbPath)
		return err
	}
	if err := fillImport(ctx, file, wavPath, sidecar, cal, samples, epochLen); err != nil {
		_ = file.Close()
		removeDB(dbPath)
		return fmt.Errorf("import %s: %w", wavPath, err)
	}
	if err := file.Close(); err != nil {
		removeDB(dbPath)
		return fmt.Errorf("close recording: %w", err)
	}
	return nil
}

func fillImport(ctx context.Context, file *File, wavPath string, sidecar *Sidecar, cal calibration.Calibration, samples []float64, epochLen int) error {
	if err := file.SetSource(ctx, wavPath); err != nil {
		return err
	}
	for name, value := range sidecar.Settings {
		if err := file.PutSetting(ctx, name, value); err != nil {
			return err
		}
	}
	var err error
	switch c := cal.(type) {
	case *calibration.FlatCalibration:
		err = file.SetFlatCalibration(ctx, c)
	case *calibration.InterpCalibration:
		err = file.SetInterpCalibration(ctx, c)
	}
	if err != nil {
		return err
	}
	for i, epoch := range sidecar.Epochs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := file.AddEpoch(ctx, epoch.Polarity, epoch.Level, samples[i*epochLen:(i+1)*epochLen]); err != nil {
			return err
		}
	}
	return nil
}

// removeDB deletes a partially written recording and any SQLite side files.
func removeDB(path string) {
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
}

func (c SidecarCalibration) build(source string) (calibration.Calibration, error) {
	attrs := calibration.Attrs{CalibrationFile: source, Loader: "recording.ImportWAV", Name: c.Name}
	switch {
	case len(c.Frequencies) > 0:
		return calibration.NewInterpFromSPL(c.Frequencies, c.Levels, 1, attrs)
	case c.MVPerPa != 0:
		return calibration.NewFlatFromMVPerPa(c.MVPerPa, attrs)
	case c.SensitivityDB != nil:
		return calibration.NewFlat(*c.SensitivityDB, attrs), nil
	default:
		return nil, fmt.Errorf("sidecar %s: [calibration] needs mv_per_pa, sensitivity_db, or frequencies/levels", source)
	}
}

// ReadWAV returns the first channel of a WAV file as floats in [-1, 1] and
// its sample rate.
func ReadWAV(path string) ([]float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("read wav format %s: %w", path, err)
	}
	var out []float64
	for {
		samples, err := reader.ReadSamples()
		for _, sample := range samples {
			out = append(out, reader.FloatValue(sample, 0))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read wav samples %s: %w", path, err)
		}
	}
	return out, float64(format.SampleRate), nil
}

// WriteWAV writes samples as 16-bit mono PCM, scaled so the largest
// magnitude maps to full scale.
func WriteWAV(path string, samples []float64, sampleRate float64) error {
	if sampleRate <= 0 {
		return fmt.Errorf("write wav: sample rate %v must be positive", sampleRate)
	}
	peak := 0.0
	for _, v := range samples {
		if a := math.Abs(v); a > peak && !math.IsInf(a, 0) {
			peak = a
		}
	}
	scale := 0.0
	if peak > 0 {
		scale = math.MaxInt16 / peak
	}
	out := make([]wav.Sample, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		q := int(math.Round(v * scale))
		out[i] = wav.Sample{Values: [2]int{q, q}}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	writer := wav.NewWriter(file, uint32(len(out)), 1, uint32(math.Round(sampleRate)), 16)
	if err := writer.WriteSamples(out); err != nil {
		_ = file.Close()
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}
