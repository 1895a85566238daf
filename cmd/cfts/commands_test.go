package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cfts/internal/calibration"
	"cfts/internal/launch"
	"cfts/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.CalRoot)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	manifestPath := filepath.Join(filepath.Dir(target), "io_manifest.toml")
	if _, err := os.Stat(manifestPath); err != nil {
		t.Fatalf("expected io manifest stub at %s: %v", manifestPath, err)
	}
	requireContains(t, out, manifestPath)

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate on sample: %v", err)
	}
	requireContains(t, out, "Starships: A")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigInitKeepsExistingManifest(t *testing.T) {
	setupCLITestEnv(t)
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "io_manifest.toml")
	testsupport.WriteManifest(t, manifestPath, testsupport.StarshipChannels("Z")...)

	out, _, err := runCLI(t, []string{"config", "init", "--path", filepath.Join(dir, "config.toml"), "--starship", "A,B"}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Kept existing IO manifest")

	out, _, err = runCLI(t, []string{"config", "validate"}, filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Starships: Z")
}

func TestCalibrationListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"calibration", "list", "starship", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("calibration list: %v", err)
	}
	var choices []calibration.Choice
	if err := json.Unmarshal([]byte(out), &choices); err != nil {
		t.Fatalf("decode choices: %v\n%s", err, out)
	}
	if len(choices) != 1 || choices[0].Display != "P01 (EPL)" {
		t.Fatalf("unexpected choices: %+v", choices)
	}

	out, _, err = runCLI(t, []string{"calibration", "list", "microphone"}, env.configPath)
	if err != nil {
		t.Fatalf("calibration list microphone: %v", err)
	}
	requireContains(t, out, "GRAS-40DP (CFTS)")
	requireContains(t, out, "Loader calibration.CFTSMicrophoneLoader reads "+env.cfg.MicrophoneCalibrationDir())
	requireContains(t, out, "Also available: calibration.EPLProbeTubeLoader")

	out, _, err = runCLI(t, []string{"calibration", "show", "starship", choices[0].Key, "--freq", "1000", "--freq", "1500"}, env.configPath)
	if err != nil {
		t.Fatalf("calibration show: %v", err)
	}
	requireContains(t, out, "interpolated")
	requireContains(t, out, "85.00")

	if _, _, err := runCLI(t, []string{"calibration", "list", "speaker"}, env.configPath); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestStarshipList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"starship", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("starship list: %v", err)
	}
	requireContains(t, out, "starship_A")
	requireContains(t, out, "starship_A_secondary")

	testsupport.WriteManifest(t, env.cfg.Hardware.IOManifest, testsupport.StarshipChannels("A")[:1]...)
	_, _, err = runCLI(t, []string{"starship", "list"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "starship_A_primary") {
		t.Fatalf("expected missing channel error, got %v", err)
	}
}

func TestLaunchDryRunPrintsPlan(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := filepath.Join(env.baseDir, "session.toml")
	testsupport.WriteText(t, settings, `paradigm = "memr_interleaved"
starship = "A"
starship_calibration = "P01 (EPL)"
microphone_calibration = "GRAS-40DP (CFTS)"
`)

	out, _, err := runCLI(t, []string{"launch", settings, "--dry-run", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("launch --dry-run: %v", err)
	}
	var plan launch.Plan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if plan.Starship.Device != "starship_A" {
		t.Fatalf("unexpected device: %q", plan.Starship.Device)
	}
	if _, err := os.Stat(plan.SessionDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the session directory, stat err=%v", err)
	}
}

func TestLaunchRunsExperiment(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := filepath.Join(env.baseDir, "session.toml")
	testsupport.WriteText(t, settings, `paradigm = "memr_interleaved"
starship = "A"
starship_calibration = "P01 (EPL)"
microphone_calibration = "GRAS-40DP (CFTS)"
`)

	if _, _, err := runCLI(t, []string{"launch", settings}, env.configPath); err != nil {
		t.Fatalf("launch: %v", err)
	}
	sessions, err := os.ReadDir(env.cfg.Experiment.SessionRoot)
	if err != nil {
		t.Fatalf("read session root: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session directory, got %d", len(sessions))
	}
	planPath := filepath.Join(env.cfg.Experiment.SessionRoot, sessions[0].Name(), launch.PlanFileName)
	if _, err := os.Stat(planPath); err != nil {
		t.Fatalf("expected plan file: %v", err)
	}
}

func TestLaunchRejectsUnknownStarship(t *testing.T) {
	env := setupCLITestEnv(t)
	settings := filepath.Join(env.baseDir, "session.toml")
	testsupport.WriteText(t, settings, `paradigm = "memr"
starship = "Q"
starship_calibration = "P01 (EPL)"
microphone_calibration = "GRAS-40DP (CFTS)"
`)
	_, _, err := runCLI(t, []string{"launch", settings, "--dry-run"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown starship") {
		t.Fatalf("expected unknown starship error, got %v", err)
	}
}

func TestCheckReportsReadyRig(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "== Rig ==")
	requireContains(t, out, "[OK]")

	if err := os.Remove(env.cfg.Hardware.IOManifest); err != nil {
		t.Fatalf("remove manifest: %v", err)
	}
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail without a manifest")
	}
	requireContains(t, out, "[ERROR]")
}

func TestRecordingInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ear.db")
	testsupport.MustCreateRecording(t, path, testsupport.DefaultMEMRFixture())

	out, _, err := runCLI(t, []string{"recording", "inspect", path}, "")
	if err != nil {
		t.Fatalf("recording inspect: %v", err)
	}
	requireContains(t, out, "20000 Hz")
	requireContains(t, out, "elicitor_n")
}
