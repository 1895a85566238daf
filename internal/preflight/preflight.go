package preflight

import (
	"context"
	"log/slog"

	"cfts/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Session root", cfg.Experiment.SessionRoot))

	results = append(results, CheckDirectoryReadable("Calibration root", cfg.Paths.CalRoot))
	results = append(results, CheckDirectoryReadable("Probe-tube calibrations", cfg.Paths.ProbeTubeDir))
	results = append(results, CheckDirectoryReadable("Microphone calibrations", cfg.MicrophoneCalibrationDir()))

	results = append(results, CheckManifest(cfg.Hardware.IOManifest))
	results = append(results, CheckCalibrations(ctx, cfg, logger)...)
	results = append(results, CheckPrograms(cfg)...)

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
