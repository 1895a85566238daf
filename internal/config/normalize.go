package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCalibration()
	if err := c.normalizeExperiment(); err != nil {
		return err
	}
	c.normalizeMEMR()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Paths.CalRoot = strings.TrimSpace(c.Paths.CalRoot)
	if c.Paths.CalRoot == "" {
		if value, ok := os.LookupEnv(calRootEnvironmentVariable); ok && strings.TrimSpace(value) != "" {
			c.Paths.CalRoot = strings.TrimSpace(value)
		} else {
			c.Paths.CalRoot = defaultCalRoot
		}
	}
	if c.Paths.CalRoot, err = expandPath(c.Paths.CalRoot); err != nil {
		return fmt.Errorf("paths.cal_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProbeTubeDir) == "" {
		c.Paths.ProbeTubeDir = defaultProbeTubeDir
	}
	if c.Paths.ProbeTubeDir, err = expandPath(c.Paths.ProbeTubeDir); err != nil {
		return fmt.Errorf("paths.probe_tube_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Hardware.IOManifest) == "" {
		c.Hardware.IOManifest = defaultIOManifest
	}
	if c.Hardware.IOManifest, err = expandPath(c.Hardware.IOManifest); err != nil {
		return fmt.Errorf("hardware.io_manifest: %w", err)
	}
	return nil
}

func (c *Config) normalizeCalibration() {
	c.Calibration.StarshipLoaders = dedupeNames(c.Calibration.StarshipLoaders)
	c.Calibration.MicrophoneLoaders = dedupeNames(c.Calibration.MicrophoneLoaders)
}

func (c *Config) normalizeExperiment() error {
	var err error
	c.Experiment.Command = strings.TrimSpace(c.Experiment.Command)
	if c.Experiment.Command == "" {
		c.Experiment.Command = defaultExperimentCommand
	}
	if strings.TrimSpace(c.Experiment.SessionRoot) == "" {
		c.Experiment.SessionRoot = defaultSessionRoot
	}
	if c.Experiment.SessionRoot, err = expandPath(c.Experiment.SessionRoot); err != nil {
		return fmt.Errorf("experiment.session_root: %w", err)
	}
	if c.Experiment.LockTimeoutSec < 0 {
		c.Experiment.LockTimeoutSec = 0
	}
	return nil
}

func (c *Config) normalizeMEMR() {
	c.MEMR.FigureFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.MEMR.FigureFormat), "."))
	if c.MEMR.FigureFormat == "" {
		c.MEMR.FigureFormat = defaultFigureFormat
	}
	if c.MEMR.ElicitorMinHz <= 0 {
		c.MEMR.ElicitorMinHz = defaultElicitorMinHz
	}
	if c.MEMR.ElicitorMaxHz <= 0 {
		c.MEMR.ElicitorMaxHz = defaultElicitorMaxHz
	}
	if c.MEMR.ProbeWindowScale <= 0 {
		c.MEMR.ProbeWindowScale = defaultProbeWindowScale
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func dedupeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
