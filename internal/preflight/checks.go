package preflight

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"cfts/internal/calibration"
	"cfts/internal/config"
	"cfts/internal/deps"
	"cfts/internal/hardware"
)

const memrCommand = "cfts-memr"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
// Calibration trees are inputs and need not be writable.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckManifest loads the IO manifest and verifies it defines at least one
// complete starship.
func CheckManifest(path string) Result {
	const name = "IO manifest"

	manifest, err := hardware.LoadManifest(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	starships, err := hardware.DescribeStarships(manifest)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	ids := make([]string, 0, len(starships))
	for _, s := range starships {
		ids = append(ids, s.ID)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d starship(s): %s", len(ids), strings.Join(ids, ", "))}
}

// CheckCalibrations lists the choices of both calibration managers. A manager
// with no choices fails because nothing could be selected at launch.
func CheckCalibrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []Result {
	managers, err := calibration.NewManagers(cfg, calibration.DefaultCatalog(cfg), logger)
	if err != nil {
		return []Result{{Name: "Calibration loaders", Detail: err.Error()}}
	}
	return []Result{
		checkManager(ctx, "Starship calibrations", managers.Starship),
		checkManager(ctx, "Microphone calibrations", managers.Microphone),
	}
}

func checkManager(ctx context.Context, name string, mgr *calibration.Manager) Result {
	choices, err := mgr.ListChoices(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(choices) == 0 {
		var sources []string
		for _, src := range mgr.Sources() {
			if src.Dir != "" {
				sources = append(sources, fmt.Sprintf("%s in %s", src.Loader, src.Dir))
			} else {
				sources = append(sources, src.Loader)
			}
		}
		return Result{Name: name, Detail: "no choices from " + strings.Join(sources, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d choice(s)", len(choices))}
}

// CheckPrograms turns CheckSystemDeps into results. A missing optional
// program passes with a note.
func CheckPrograms(cfg *config.Config) []Result {
	statuses := CheckSystemDeps(cfg)
	missing := make(map[string]bool)
	for _, s := range deps.Missing(statuses) {
		missing[s.Name] = true
	}
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		switch {
		case s.Available:
			results = append(results, Result{Name: s.Name, Passed: true, Detail: s.Path})
		case missing[s.Name]:
			results = append(results, Result{Name: s.Name, Detail: s.Detail})
		default:
			results = append(results, Result{Name: s.Name, Passed: true, Detail: "optional, " + s.Detail})
		}
	}
	return results
}

// CheckSystemDeps reports the external programs cfts relies on.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "Experiment command",
			Command:     cfg.Experiment.Command,
			Description: "Runs the selected paradigm",
		},
		{
			Name:        "MEMR batch",
			Command:     memrCommand,
			Description: "Plots MEMR recordings after a session",
			Optional:    true,
		},
	})
}
