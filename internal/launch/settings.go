package launch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrSettings reports an unreadable or incomplete settings file.
	ErrSettings = errors.New("invalid launch settings")
	// ErrUnknownStarship reports a starship ID absent from the IO manifest.
	ErrUnknownStarship = errors.New("unknown starship")
	// ErrRigBusy reports another launch holding the rig lock.
	ErrRigBusy = errors.New("rig is busy")
)

// Settings are the experimenter's selections for one session.
type Settings struct {
	Paradigm              string         `toml:"paradigm" json:"paradigm"`
	Starship              string         `toml:"starship" json:"starship"`
	StarshipCalibration   string         `toml:"starship_calibration" json:"starship_calibration"`
	MicrophoneCalibration string         `toml:"microphone_calibration" json:"microphone_calibration"`
	OutputDir             string         `toml:"output_dir" json:"output_dir,omitempty"`
	Parameters            map[string]any `toml:"parameters" json:"parameters,omitempty"`

	// Path is the file the settings were read from.
	Path string `toml:"-" json:"path,omitempty"`
}

// LoadSettings reads and validates a settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}
	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrSettings, path, err)
	}
	s.Path = path
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

func (s *Settings) normalize() {
	s.Paradigm = strings.TrimSpace(s.Paradigm)
	s.Starship = strings.TrimSpace(s.Starship)
	s.StarshipCalibration = strings.TrimSpace(s.StarshipCalibration)
	s.MicrophoneCalibration = strings.TrimSpace(s.MicrophoneCalibration)
	s.OutputDir = strings.TrimSpace(s.OutputDir)
}

// Validate reports the first missing selection.
func (s *Settings) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"paradigm", s.Paradigm},
		{"starship", s.Starship},
		{"starship_calibration", s.StarshipCalibration},
		{"microphone_calibration", s.MicrophoneCalibration},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrSettings, r.key)
		}
	}
	if strings.ContainsAny(s.Paradigm, `/\`) {
		return fmt.Errorf("%w: paradigm %q must not contain path separators", ErrSettings, s.Paradigm)
	}
	return nil
}
