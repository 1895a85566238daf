package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedFigureFormats = map[string]struct{}{
	"pdf": {},
	"png": {},
	"svg": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCalibration(); err != nil {
		return err
	}
	if err := c.validateMEMR(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CalRoot) == "" {
		return errors.New("paths.cal_root must be set (or export CAL_ROOT)")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateCalibration() error {
	for _, name := range append(append([]string{}, c.Calibration.StarshipLoaders...), c.Calibration.MicrophoneLoaders...) {
		if strings.Contains(name, "::") {
			return fmt.Errorf("calibration loader name %q must not contain \"::\"", name)
		}
	}
	return nil
}

func (c *Config) validateMEMR() error {
	if _, ok := supportedFigureFormats[c.MEMR.FigureFormat]; !ok {
		return fmt.Errorf("memr.figure_format: unsupported value %q (use pdf, png, or svg)", c.MEMR.FigureFormat)
	}
	if c.MEMR.ElicitorMinHz >= c.MEMR.ElicitorMaxHz {
		return errors.New("memr.elicitor_min_hz must be lower than memr.elicitor_max_hz")
	}
	return nil
}
