package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cfts/internal/config"
	"cfts/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("CAL_ROOT", "")

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	testsupport.WriteProbeTubeFile(t, cfg.Paths.ProbeTubeDir, "P01",
		testsupport.CalPoint{Freq: 1000, Level: 80},
		testsupport.CalPoint{Freq: 2000, Level: 90},
	)
	testsupport.WriteMicrophoneCalibration(t, cfg.MicrophoneCalibrationDir(), "GRAS-40DP", "2024-03-01",
		`{"mic sens overall (mV/Pa)": 12.5}`)
	testsupport.WriteManifest(t, cfg.Hardware.IOManifest, testsupport.StarshipChannels("A")...)

	configPath := filepath.Join(homeDir, ".config", "cfts", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
cal_root = %q
probe_tube_dir = %q
state_dir = %q
log_dir = %q

[hardware]
io_manifest = %q

[experiment]
command = %q
session_root = %q

[logging]
level = "error"
`,
		cfg.Paths.CalRoot,
		cfg.Paths.ProbeTubeDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Hardware.IOManifest,
		cfg.Experiment.Command,
		cfg.Experiment.SessionRoot,
	)
	testsupport.WriteText(t, path, content)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
