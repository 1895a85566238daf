package memr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cfts/internal/calibration"
	"cfts/internal/config"
	"cfts/internal/logging"
	"cfts/internal/recording"
	"cfts/internal/session"
)

// Kind classifies how processing of one file ended.
type Kind string

const (
	KindOK          Kind = "ok"
	KindOpen        Kind = "open"
	KindSettings    Kind = "settings"
	KindCalibration Kind = "calibration"
	KindData        Kind = "data"
	KindRender      Kind = "render"
	KindCanceled    Kind = "canceled"
)

// StageError tags a pipeline failure with the step that raised it.
type StageError struct {
	Kind Kind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCanceled
	}
	return &StageError{Kind: kind, Err: err}
}

// KindOf returns the stage recorded in err, KindOK for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var stage *StageError
	if errors.As(err, &stage) {
		return stage.Kind
	}
	return KindData
}

// Source is the recording capability the pipeline reads from.
type Source interface {
	SampleRate(ctx context.Context) (float64, error)
	Setting(ctx context.Context, name string) (float64, error)
	MicrophoneCalibration(ctx context.Context) (calibration.Calibration, error)
	Epochs(ctx context.Context) ([]recording.Epoch, error)
	Close() error
}

// Opener opens the recording at path.
type Opener func(ctx context.Context, path string) (Source, error)

// OpenRecording opens SQLite recordings.
func OpenRecording(ctx context.Context, path string) (Source, error) {
	f, err := recording.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Options control figure output.
type Options struct {
	FigureFormat     string
	Range            FigureRange
	ProbeWindowScale float64
	ExportWAV        bool
	Open             Opener
	Logger           *slog.Logger
}

// OptionsFromConfig maps the [memr] section onto pipeline options.
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		FigureFormat:     cfg.MEMR.FigureFormat,
		Range:            FigureRange{MinHz: cfg.MEMR.ElicitorMinHz, MaxHz: cfg.MEMR.ElicitorMaxHz},
		ProbeWindowScale: cfg.MEMR.ProbeWindowScale,
		ExportWAV:        cfg.MEMR.ExportWAV,
		Logger:           logger,
	}
}

func (o Options) withDefaults() Options {
	if o.FigureFormat == "" {
		o.FigureFormat = "pdf"
	}
	if o.Range.MinHz <= 0 {
		o.Range.MinHz = 500
	}
	if o.Range.MaxHz <= o.Range.MinHz {
		o.Range.MaxHz = 50e3
	}
	if o.ProbeWindowScale <= 0 {
		o.ProbeWindowScale = 1.5
	}
	if o.Open == nil {
		o.Open = OpenRecording
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// Result lists what ProcessFile wrote. It is returned alongside errors so
// callers can report figures written before the failure.
type Result struct {
	Path      string
	OutputDir string
	Figures   []string
	Exports   []string
}

// OutputDir returns the directory figures for path are written to: a folder
// named after the file stem, beside the file.
func OutputDir(path string) (dir, stem string) {
	base := filepath.Base(path)
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(path), stem), stem
}

// ProcessFile writes the MEMR summary figures for one recording.
func ProcessFile(ctx context.Context, path string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	ctx = session.WithRecording(ctx, path)
	logger := logging.WithContext(ctx, opts.Logger)

	outDir, stem := OutputDir(path)
	result := &Result{Path: path, OutputDir: outDir}

	src, err := opts.Open(ctx, path)
	if err != nil {
		return result, stageErr(KindOpen, err)
	}
	defer src.Close()

	cal, err := src.MicrophoneCalibration(ctx)
	if err != nil {
		return result, stageErr(KindCalibration, err)
	}
	fs, err := src.SampleRate(ctx)
	if err != nil {
		return result, stageErr(KindOpen, err)
	}
	settings, err := ReadSettings(ctx, src)
	if err != nil {
		return result, stageErr(KindSettings, err)
	}
	epochs, err := src.Epochs(ctx)
	if err != nil {
		return result, stageErr(KindData, err)
	}
	logger.Debug("recording loaded",
		logging.Float64("sample_rate", fs),
		logging.Int("epochs", len(epochs)),
		logging.Int("elicitor_n", settings.ElicitorN),
	)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return result, stageErr(KindRender, fmt.Errorf("create output directory: %w", err))
	}

	analysis, err := Analyze(epochs, fs, cal, settings, opts.ProbeWindowScale)
	if err != nil {
		return result, stageErr(KindData, err)
	}

	renderers := []struct {
		label  string
		render func() (string, error)
	}{
		{LabelStimulusTrain, func() (string, error) { return renderStimulusTrain(analysis, outDir, stem, opts.FigureFormat) }},
		{LabelElicitorPSD, func() (string, error) {
			return renderElicitorPSD(analysis, outDir, stem, opts.FigureFormat, opts.Range)
		}},
		{LabelProbeWaveform, func() (string, error) { return renderProbeWaveform(analysis, outDir, stem, opts.FigureFormat) }},
		{LabelProbePSD, func() (string, error) { return renderProbePSD(analysis, outDir, stem, opts.FigureFormat) }},
		{LabelMEMR, func() (string, error) { return renderMEMR(analysis, outDir, stem, opts.FigureFormat) }},
	}
	for _, r := range renderers {
		if err := ctx.Err(); err != nil {
			return result, stageErr(KindRender, err)
		}
		stageCtx := session.WithStage(ctx, r.label)
		figure, err := r.render()
		if err != nil {
			return result, stageErr(KindRender, err)
		}
		result.Figures = append(result.Figures, figure)
		logging.WithContext(stageCtx, opts.Logger).Debug("figure written", logging.String("figure", figure))
	}

	if opts.ExportWAV {
		exports, err := ExportStimulusTrain(analysis, outDir, stem)
		result.Exports = append(result.Exports, exports...)
		if err != nil {
			return result, stageErr(KindRender, err)
		}
	}
	return result, nil
}
