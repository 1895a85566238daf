package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// CalRoot holds the starship/ and microphone/ calibration trees.
	// Falls back to the CAL_ROOT environment variable when empty.
	CalRoot      string `toml:"cal_root"`
	ProbeTubeDir string `toml:"probe_tube_dir"`
	StateDir     string `toml:"state_dir"`
	LogDir       string `toml:"log_dir"`
}

// Hardware describes where the IO manifest lives.
type Hardware struct {
	IOManifest string `toml:"io_manifest"`
}

// Calibration lists the loaders registered with each calibration manager.
type Calibration struct {
	StarshipLoaders   []string `toml:"starship_loaders"`
	MicrophoneLoaders []string `toml:"microphone_loaders"`
}

// Experiment configures the external experiment framework the launcher hands off to.
type Experiment struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	SessionRoot    string   `toml:"session_root"`
	LockTimeoutSec int      `toml:"lock_timeout_seconds"`
}

// MEMR contains settings for the batch MEMR summary.
type MEMR struct {
	FigureFormat     string  `toml:"figure_format"`
	ElicitorMinHz    float64 `toml:"elicitor_min_hz"`
	ElicitorMaxHz    float64 `toml:"elicitor_max_hz"`
	ProbeWindowScale float64 `toml:"probe_window_scale"`
	ExportWAV        bool    `toml:"export_wav"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cfts.
//
// Configuration sections by subsystem:
//   - Paths: calibration root, probe-tube directory, state and log directories
//   - Hardware: IO manifest describing starship channels
//   - Calibration: loaders registered with the starship and microphone managers
//   - Experiment: external experiment command and session layout
//   - MEMR: figure options for the batch summary
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Hardware    Hardware    `toml:"hardware"`
	Calibration Calibration `toml:"calibration"`
	Experiment  Experiment  `toml:"experiment"`
	MEMR        MEMR        `toml:"memr"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cfts/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cfts.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories cfts writes to. Calibration
// trees are read-only inputs and are never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Experiment.SessionRoot} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StarshipCalibrationDir returns the CFTS starship calibration tree under the calibration root.
func (c *Config) StarshipCalibrationDir() string {
	return filepath.Join(c.Paths.CalRoot, "starship")
}

// MicrophoneCalibrationDir returns the CFTS microphone calibration tree under the calibration root.
func (c *Config) MicrophoneCalibrationDir() string {
	return filepath.Join(c.Paths.CalRoot, "microphone")
}

// LockPath returns the rig lock file guarding experiment launches.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "cfts.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// The sample's io_manifest points at io_manifest.toml beside the config file.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	manifest := filepath.Join(filepath.Dir(path), SampleManifestName)
	body := strings.Replace(sampleConfig,
		fmt.Sprintf("io_manifest = %q", defaultIOManifest),
		fmt.Sprintf("io_manifest = %q", manifest), 1)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
