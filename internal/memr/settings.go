package memr

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Recording setting names read by the pipeline.
const (
	SettingRepeatPeriod   = "repeat_period"
	SettingProbeDelay     = "probe_chirp_delay"
	SettingProbeDuration  = "probe_chirp_duration"
	SettingElicitorDelay  = "elicitor_envelope_start_time"
	SettingElicitorFL     = "elicitor_fl"
	SettingElicitorFH     = "elicitor_fh"
	SettingProbeFL        = "probe_fl"
	SettingProbeFH        = "probe_fh"
	SettingElicitorRepeat = "elicitor_n"
)

// ErrSettings reports missing or inconsistent recording settings.
var ErrSettings = errors.New("invalid MEMR settings")

// Settings are the acquisition parameters the summary depends on. Times are
// in seconds and frequencies in Hz.
type Settings struct {
	RepeatPeriod  float64
	ProbeDelay    float64
	ProbeDuration float64
	ElicitorDelay float64
	ElicitorFL    float64
	ElicitorFH    float64
	ProbeFL       float64
	ProbeFH       float64
	// ElicitorN is the number of elicitor repeats; each epoch holds one more
	// repeat with a silent period in place of the elicitor.
	ElicitorN int
}

// SettingReader is the part of a recording the settings are read from.
type SettingReader interface {
	Setting(ctx context.Context, name string) (float64, error)
}

// ReadSettings loads and validates every setting the pipeline needs.
func ReadSettings(ctx context.Context, r SettingReader) (Settings, error) {
	var s Settings
	var elicitorN float64
	fields := []struct {
		name string
		dst  *float64
	}{
		{SettingRepeatPeriod, &s.RepeatPeriod},
		{SettingProbeDelay, &s.ProbeDelay},
		{SettingProbeDuration, &s.ProbeDuration},
		{SettingElicitorDelay, &s.ElicitorDelay},
		{SettingElicitorFL, &s.ElicitorFL},
		{SettingElicitorFH, &s.ElicitorFH},
		{SettingProbeFL, &s.ProbeFL},
		{SettingProbeFH, &s.ProbeFH},
		{SettingElicitorRepeat, &elicitorN},
	}
	for _, f := range fields {
		v, err := r.Setting(ctx, f.name)
		if err != nil {
			return Settings{}, fmt.Errorf("%w: %w", ErrSettings, err)
		}
		*f.dst = v
	}
	if elicitorN != math.Trunc(elicitorN) {
		return Settings{}, fmt.Errorf("%w: %s = %v is not a whole number", ErrSettings, SettingElicitorRepeat, elicitorN)
	}
	s.ElicitorN = int(elicitorN)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the settings describe a usable repeat layout.
func (s Settings) Validate() error {
	switch {
	case s.ElicitorN < 1:
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrSettings, SettingElicitorRepeat, s.ElicitorN)
	case !(s.RepeatPeriod > 0):
		return fmt.Errorf("%w: %s must be positive", ErrSettings, SettingRepeatPeriod)
	case !(s.ProbeDuration > 0):
		return fmt.Errorf("%w: %s must be positive", ErrSettings, SettingProbeDuration)
	case s.ProbeDelay < 0 || s.ElicitorDelay < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrSettings)
	case s.ElicitorDelay >= s.RepeatPeriod:
		return fmt.Errorf("%w: %s %v is past the repeat period %v", ErrSettings, SettingElicitorDelay, s.ElicitorDelay, s.RepeatPeriod)
	}
	return nil
}
