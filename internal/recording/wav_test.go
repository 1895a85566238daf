package recording_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"cfts/internal/recording"
	"cfts/internal/testsupport"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	in := []float64{0, 0.5, -1, 1, 0.25, -0.25}
	if err := recording.WriteWAV(path, in, 44100); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	out, rate, err := recording.ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if rate != 44100 {
		t.Fatalf("rate = %v", rate)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-3 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestImportWAV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "session.wav")
	if err := recording.WriteWAV(wavPath, []float64{0.1, 0.2, 0.3, -0.1, -0.2, -0.3}, 8000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	testsupport.WriteText(t, filepath.Join(dir, "session.toml"), `
[settings]
repeat_period = 0.05
elicitor_n = 4

[calibration]
name = "GRAS-40DP"
mv_per_pa = 12.5

[[epoch]]
polarity = 1
level = 80

[[epoch]]
polarity = -1
level = 80.0
`)
	dbPath := filepath.Join(dir, "session.db")
	if err := recording.ImportWAV(ctx, wavPath, "", dbPath); err != nil {
		t.Fatalf("ImportWAV: %v", err)
	}

	file, err := recording.Open(ctx, dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	epochs, err := file.Epochs(ctx)
	if err != nil {
		t.Fatalf("Epochs: %v", err)
	}
	if len(epochs) != 2 || len(epochs[0].Samples) != 3 || epochs[1].ElicitorPolarity != -1 {
		t.Fatalf("unexpected epochs: %+v", epochs)
	}
	if n, err := file.Setting(ctx, "elicitor_n"); err != nil || n != 4 {
		t.Fatalf("elicitor_n = %v, %v", n, err)
	}
	source, err := file.Source(ctx)
	if err != nil || source != wavPath {
		t.Fatalf("source = %q, %v", source, err)
	}
	cal, err := file.MicrophoneCalibration(ctx)
	if err != nil {
		t.Fatalf("MicrophoneCalibration: %v", err)
	}
	if cal.Attrs().Name != "GRAS-40DP" {
		t.Fatalf("unexpected calibration attrs: %+v", cal.Attrs())
	}
}

func TestImportWAVRejectsUnevenEpochs(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "odd.wav")
	if err := recording.WriteWAV(wavPath, []float64{0.1, 0.2, 0.3}, 8000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	testsupport.WriteText(t, filepath.Join(dir, "odd.toml"), "[calibration]\nmv_per_pa = 1.0\n[[epoch]]\nlevel = 80\n[[epoch]]\nlevel = 80\n")
	if err := recording.ImportWAV(context.Background(), wavPath, "", filepath.Join(dir, "odd.db")); err == nil {
		t.Fatal("expected error for uneven epoch split")
	}
}

func TestImportWAVRemovesPartialRecording(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "session.wav")
	if err := recording.WriteWAV(wavPath, []float64{0.1, 0.2, -0.1, -0.2}, 8000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	testsupport.WriteText(t, filepath.Join(dir, "session.toml"),
		"[settings]\nelicitor_n = 1\n[calibration]\nmv_per_pa = 1.0\n[[epoch]]\npolarity = 1\nlevel = 80\n[[epoch]]\npolarity = -1\nlevel = 80\n")
	dbPath := filepath.Join(dir, "session.db")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := recording.ImportWAV(ctx, wavPath, "", dbPath); err == nil {
		t.Fatal("expected import with a cancelled context to fail")
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("failed import left %s behind: %v", dbPath, err)
	}

	if err := recording.ImportWAV(context.Background(), wavPath, "", dbPath); err != nil {
		t.Fatalf("retry after failed import: %v", err)
	}
}

func TestImportWAVKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	wavPath := filepath.Join(dir, "session.wav")
	if err := recording.WriteWAV(wavPath, []float64{0.1, 0.2}, 8000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	testsupport.WriteText(t, filepath.Join(dir, "session.toml"), "[calibration]\nmv_per_pa = 1.0\n[[epoch]]\nlevel = 80\n")
	dbPath := filepath.Join(dir, "session.db")
	testsupport.WriteText(t, dbPath, "not a recording")

	if err := recording.ImportWAV(context.Background(), wavPath, "", dbPath); err == nil {
		t.Fatal("expected import onto an existing path to fail")
	}
	data, err := os.ReadFile(dbPath)
	if err != nil || string(data) != "not a recording" {
		t.Fatalf("existing file was modified: %q, %v", data, err)
	}
}
