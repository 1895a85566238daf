package memr

import (
	"context"

	"cfts/internal/logging"
)

// Outcome reports how one file of a batch ended.
type Outcome struct {
	Path      string
	OutputDir string
	Figures   []string
	Exports   []string
	Kind      Kind
	Err       error
}

// OK reports whether the file was fully processed.
func (o Outcome) OK() bool { return o.Kind == KindOK }

// RunBatch processes paths in order. Failures are recorded in the matching
// Outcome and never stop the batch; a canceled context marks the remaining
// files canceled without opening them.
func RunBatch(ctx context.Context, paths []string, opts Options) []Outcome {
	opts = opts.withDefaults()
	logger := logging.NewComponentLogger(logging.WithContext(ctx, opts.Logger), "memr")
	opts.Logger = logger

	outcomes := make([]Outcome, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			dir, _ := OutputDir(path)
			outcomes = append(outcomes, Outcome{Path: path, OutputDir: dir, Kind: KindCanceled, Err: err})
			continue
		}
		result, err := ProcessFile(ctx, path, opts)
		outcome := Outcome{
			Path:      path,
			OutputDir: result.OutputDir,
			Figures:   result.Figures,
			Exports:   result.Exports,
			Kind:      KindOf(err),
			Err:       err,
		}
		if err != nil {
			logging.WarnWithContext(logger, "recording failed", "memr_file_failed",
				logging.String(logging.FieldRecording, path),
				logging.String("kind", string(outcome.Kind)),
				logging.Int("figures_written", len(outcome.Figures)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(outcome.Kind)),
			)
		} else {
			logger.Info("recording summarized",
				logging.String(logging.FieldRecording, path),
				logging.String("output_dir", outcome.OutputDir),
				logging.Int("figures", len(outcome.Figures)),
			)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Tally counts outcomes by kind.
func Tally(outcomes []Outcome) map[Kind]int {
	counts := make(map[Kind]int)
	for _, o := range outcomes {
		counts[o.Kind]++
	}
	return counts
}

func hintFor(kind Kind) string {
	switch kind {
	case KindOpen:
		return "check the path points to a cfts recording"
	case KindSettings:
		return "the recording lacks MEMR settings; was it acquired with a MEMR paradigm?"
	case KindCalibration:
		return "the recording was saved without a microphone calibration"
	case KindData:
		return "epoch length does not match the repeat settings"
	case KindRender:
		return "check the output directory is writable"
	default:
		return "check logs for details"
	}
}
