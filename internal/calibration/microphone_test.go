package calibration_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"cfts/internal/calibration"
	"cfts/internal/testsupport"
)

func TestCFTSMicrophoneLoaderSelectsNewestCalibration(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMicrophoneCalibration(t, root, "GRAS-40DP", "20230101", `{"mic sens overall (mV/Pa)": 10.0}`)
	newest := testsupport.WriteMicrophoneCalibration(t, root, "GRAS-40DP", "20240315", `{"mic sens overall (mV/Pa)": 12.5, "operator": "bb"}`)

	loader := calibration.NewCFTSMicrophoneLoader(calibration.CFTSMicrophoneLoaderName, root)
	current, err := loader.CurrentCalibration("GRAS-40DP")
	if err != nil {
		t.Fatalf("CurrentCalibration: %v", err)
	}
	if current != newest {
		t.Fatalf("CurrentCalibration = %q, want %q", current, newest)
	}

	cal, err := loader.Load(context.Background(), "GRAS-40DP")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	flat, ok := cal.(*calibration.FlatCalibration)
	if !ok {
		t.Fatalf("Load returned %T, want *FlatCalibration", cal)
	}
	if flat.MVPerPa != 12.5 {
		t.Fatalf("MVPerPa = %v, want 12.5", flat.MVPerPa)
	}
	attrs := cal.Attrs()
	if attrs.CalibrationFile != newest || attrs.Name != "GRAS-40DP" || attrs.Loader != calibration.CFTSMicrophoneLoaderName {
		t.Fatalf("unexpected attrs: %+v", attrs)
	}
	content, ok := attrs.Extra["calibration"].(map[string]any)
	if !ok || content["mic sens overall (mV/Pa)"] != 12.5 || content["operator"] != "bb" {
		t.Fatalf("expected parsed JSON in attrs, got %v", attrs.Extra)
	}
}

func TestCFTSMicrophoneLoaderErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "missing key", body: `{"other": 1}`, want: calibration.ErrMalformed},
		{name: "not json", body: `mic sens 12.5`, want: calibration.ErrMalformed},
		{name: "string value", body: `{"mic sens overall (mV/Pa)": "12.5"}`, want: calibration.ErrMalformed},
		{name: "zero value", body: `{"mic sens overall (mV/Pa)": 0}`, want: calibration.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			testsupport.WriteMicrophoneCalibration(t, root, "mic", "2024", tt.body)
			loader := calibration.NewCFTSMicrophoneLoader(calibration.CFTSMicrophoneLoaderName, root)
			if _, err := loader.Load(context.Background(), "mic"); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCFTSMicrophoneLoaderNoCalibration(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteText(t, filepath.Join(root, "mic", "README"), "no dated folders")
	loader := calibration.NewCFTSMicrophoneLoader(calibration.CFTSMicrophoneLoaderName, root)
	if _, err := loader.Load(context.Background(), "mic"); !errors.Is(err, calibration.ErrNoCalibration) {
		t.Fatalf("err = %v, want ErrNoCalibration", err)
	}
	if _, err := loader.CurrentCalibration("absent"); !errors.Is(err, calibration.ErrNoCalibration) {
		t.Fatalf("absent entry err = %v, want ErrNoCalibration", err)
	}
}

func TestCFTSMicrophoneLoaderMissingJSON(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteText(t, filepath.Join(root, "mic", "2024 mic", "other.txt"), "x")
	loader := calibration.NewCFTSMicrophoneLoader(calibration.CFTSMicrophoneLoaderName, root)
	if _, err := loader.Load(context.Background(), "mic"); !errors.Is(err, calibration.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestCFTSMicrophoneLoaderListChoices(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteMicrophoneCalibration(t, root, "GRAS-40DP", "2024", `{}`)
	testsupport.WriteMicrophoneCalibration(t, root, "BK-4138", "2024", `{}`)
	testsupport.WriteText(t, filepath.Join(root, "stray.json"), "{}")

	loader := calibration.NewCFTSMicrophoneLoader(calibration.CFTSMicrophoneLoaderName, root)
	got, err := loader.ListChoices(context.Background())
	if err != nil {
		t.Fatalf("ListChoices: %v", err)
	}
	if want := []string{"BK-4138", "GRAS-40DP"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ListChoices = %v, want %v", got, want)
	}
}

func TestCFTSMicrophoneLoaderRejectsPathEntries(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "cal")
	// Lands at base/"2024 .." so an unchecked ".." entry would resolve to it.
	testsupport.WriteMicrophoneCalibration(t, root, "..", "2024", `{"mic sens overall (mV/Pa)": 12.5}`)
	loader := calibration.NewCFTSMicrophoneLoader(calibration.CFTSMicrophoneLoaderName, root)

	for _, entry := range []string{"..", "../cal", `a\b`, ""} {
		if _, err := loader.Load(context.Background(), entry); !errors.Is(err, calibration.ErrNoCalibration) {
			t.Fatalf("Load(%q) err = %v, want ErrNoCalibration", entry, err)
		}
	}
}
