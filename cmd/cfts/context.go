package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cfts/internal/calibration"
	"cfts/internal/config"
	"cfts/internal/hardware"
	"cfts/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the CLI logger once. Commands that never touch the rig
// skip it entirely.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg, "cfts.log")
	})
	return c.logger, c.loggerErr
}

// managers builds the starship and microphone managers from config.
func (c *commandContext) managers() (*config.Config, *calibration.Managers, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	mgrs, err := calibration.NewManagers(cfg, calibration.DefaultCatalog(cfg), logging.NewComponentLogger(logger, "calibration"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, mgrs, nil
}

func (c *commandContext) manifest() (*hardware.Manifest, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	manifest, err := hardware.LoadManifest(cfg.Hardware.IOManifest)
	if err != nil {
		return nil, fmt.Errorf("load IO manifest: %w", err)
	}
	return manifest, nil
}

func (c *commandContext) manager(kind string) (*calibration.Manager, error) {
	_, mgrs, err := c.managers()
	if err != nil {
		return nil, err
	}
	switch kind {
	case "starship":
		return mgrs.Starship, nil
	case "microphone":
		return mgrs.Microphone, nil
	default:
		return nil, fmt.Errorf("unknown calibration kind %q (want starship or microphone)", kind)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
