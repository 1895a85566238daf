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

func TestEPLProbeTubeLoaderLoadsCurve(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteProbeTubeFile(t, dir, "P123",
		testsupport.CalPoint{Freq: 1000, Level: 80.0},
		testsupport.CalPoint{Freq: 2000, Level: 82.5},
	)
	loader := calibration.NewEPLProbeTubeLoader(calibration.EPLProbeTubeLoaderName, dir)

	cal, err := loader.Load(context.Background(), "P123")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cal.Sensitivity(1000); got != 80.0 {
		t.Fatalf("Sensitivity(1000) = %v, want 80.0", got)
	}
	if got := cal.Sensitivity(2000); got != 82.5 {
		t.Fatalf("Sensitivity(2000) = %v, want 82.5", got)
	}
	want := calibration.Attrs{CalibrationFile: path, Loader: calibration.EPLProbeTubeLoaderName, Name: "P123"}
	if !reflect.DeepEqual(cal.Attrs(), want) {
		t.Fatalf("Attrs = %+v, want %+v", cal.Attrs(), want)
	}
}

func TestEPLProbeTubeLoaderParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing marker", content: "header\nheader\nheader\n1000\t80.0\n2000\t82.5\n"},
		{name: "bad number", content: "h\nFreq(Hz)\tSPL(dB)\n1000\tloud\n"},
		{name: "extra column", content: "h\nFreq(Hz)\tSPL(dB)\n1000\t80\t1\n"},
		{name: "no rows", content: "h\nFreq(Hz)\tSPL(dB)\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			testsupport.WriteText(t, filepath.Join(dir, "X_ProbeTube.calib"), tt.content)
			loader := calibration.NewEPLProbeTubeLoader(calibration.EPLProbeTubeLoaderName, dir)
			_, err := loader.Load(context.Background(), "X")
			if !errors.Is(err, calibration.ErrParse) {
				t.Fatalf("err = %v, want ErrParse", err)
			}
		})
	}
}

func TestEPLProbeTubeLoaderMissingFile(t *testing.T) {
	loader := calibration.NewEPLProbeTubeLoader(calibration.EPLProbeTubeLoaderName, t.TempDir())
	if _, err := loader.Load(context.Background(), "absent"); !errors.Is(err, calibration.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEPLProbeTubeLoaderListChoices(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteProbeTubeFile(t, dir, "B_2", testsupport.CalPoint{Freq: 1000, Level: 80})
	testsupport.WriteProbeTubeFile(t, dir, "A1", testsupport.CalPoint{Freq: 1000, Level: 80})
	testsupport.WriteText(t, filepath.Join(dir, "notes.txt"), "ignored")

	loader := calibration.NewEPLProbeTubeLoader(calibration.EPLProbeTubeLoaderName, dir)
	got, err := loader.ListChoices(context.Background())
	if err != nil {
		t.Fatalf("ListChoices: %v", err)
	}
	if want := []string{"A1", "B_2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ListChoices = %v, want %v", got, want)
	}

	missing := calibration.NewEPLProbeTubeLoader(calibration.EPLProbeTubeLoaderName, filepath.Join(dir, "nope"))
	got, err = missing.ListChoices(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("missing dir: got %v, %v; want no entries and no error", got, err)
	}
}

func TestEPLProbeTubeLoaderRejectsPathEntries(t *testing.T) {
	base := t.TempDir()
	testsupport.WriteProbeTubeFile(t, base, "outside", testsupport.CalPoint{Freq: 1000, Level: 80})
	loader := calibration.NewEPLProbeTubeLoader(calibration.EPLProbeTubeLoaderName, filepath.Join(base, "cal"))

	for _, entry := range []string{"../outside", `..\outside`, "..", "sub/P01", ""} {
		if _, err := loader.Load(context.Background(), entry); !errors.Is(err, calibration.ErrNotFound) {
			t.Fatalf("Load(%q) err = %v, want ErrNotFound", entry, err)
		}
	}
}
