package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CalPoint is one row of a probe-tube calibration export.
type CalPoint struct {
	Freq  float64
	Level float64
}

// WriteProbeTubeFile writes an EPL-style <name>_ProbeTube.calib file with
// three header lines and the Freq(Hz) marker. It returns the file path.
func WriteProbeTubeFile(t testing.TB, dir, name string, points ...CalPoint) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("EPL Probe Tube Calibration\n")
	b.WriteString("Probe: " + name + "\n")
	b.WriteString("Date: 2024-01-15\n")
	b.WriteString("Freq(Hz)\tSPL(dB)\n")
	for _, p := range points {
		fmt.Fprintf(&b, "%g\t%g\n", p.Freq, p.Level)
	}
	path := filepath.Join(dir, name+"_ProbeTube.calib")
	WriteText(t, path, b.String())
	return path
}

// WriteMicrophoneCalibration writes <root>/<mic>/<prefix> <mic>/microphone_sensitivity.json
// with the given JSON body and returns the calibration directory.
func WriteMicrophoneCalibration(t testing.TB, root, mic, prefix, body string) string {
	t.Helper()

	dir := filepath.Join(root, mic, prefix+" "+mic)
	WriteText(t, filepath.Join(dir, "microphone_sensitivity.json"), body)
	return dir
}

// ManifestChannel is one channel written by WriteManifest.
type ManifestChannel struct {
	Name      string
	Direction string
}

// WriteManifest writes an IO manifest with the provided channels.
func WriteManifest(t testing.TB, path string, channels ...ManifestChannel) {
	t.Helper()

	var b strings.Builder
	b.WriteString("# test manifest\n")
	for _, ch := range channels {
		direction := ch.Direction
		if direction == "" {
			direction = "output"
			if strings.HasSuffix(ch.Name, "_microphone") {
				direction = "input"
			}
		}
		fmt.Fprintf(&b, "\n[[channel]]\nname = %q\ndirection = %q\ndevice = \"Dev1\"\nfs = 100000.0\n", ch.Name, direction)
	}
	WriteText(t, path, b.String())
}

// StarshipChannels returns the three channels that make up a complete starship.
func StarshipChannels(id string) []ManifestChannel {
	return []ManifestChannel{
		{Name: "starship_" + id + "_microphone"},
		{Name: "starship_" + id + "_primary"},
		{Name: "starship_" + id + "_secondary"},
	}
}
