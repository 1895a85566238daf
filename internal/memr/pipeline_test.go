package memr_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cfts/internal/memr"
	"cfts/internal/recording"
	"cfts/internal/testsupport"
)

func TestProcessFileWritesAllFigures(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.MustCreateRecording(t, filepath.Join(dir, "mouse 12.db"), testsupport.DefaultMEMRFixture())

	result, err := memr.ProcessFile(context.Background(), path, memr.Options{ExportWAV: true})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	wantDir := filepath.Join(dir, "mouse 12")
	if result.OutputDir != wantDir {
		t.Fatalf("OutputDir = %q, want %q", result.OutputDir, wantDir)
	}
	if len(result.Figures) != len(memr.Labels) {
		t.Fatalf("expected %d figures, got %v", len(memr.Labels), result.Figures)
	}
	for _, label := range memr.Labels {
		figure := filepath.Join(wantDir, "mouse 12 "+label+".pdf")
		info, err := os.Stat(figure)
		if err != nil {
			t.Fatalf("expected figure %q: %v", figure, err)
		}
		if info.Size() == 0 {
			t.Fatalf("figure %q is empty", figure)
		}
	}
	if len(result.Exports) != 2 {
		t.Fatalf("expected one WAV per level, got %v", result.Exports)
	}
	samples, rate, err := recording.ReadWAV(result.Exports[0])
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if rate != 20000 || len(samples) != 3000 {
		t.Fatalf("unexpected export: rate=%v len=%d", rate, len(samples))
	}
}

func TestProcessFileFigureFormat(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.MustCreateRecording(t, filepath.Join(dir, "ear.db"), testsupport.DefaultMEMRFixture())
	result, err := memr.ProcessFile(context.Background(), path, memr.Options{FigureFormat: "png"})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if filepath.Ext(result.Figures[0]) != ".png" {
		t.Fatalf("unexpected figure %q", result.Figures[0])
	}
}

func TestProcessFileStageKinds(t *testing.T) {
	dir := t.TempDir()

	missingSetting := testsupport.DefaultMEMRFixture()
	delete(missingSetting.Settings, memr.SettingProbeFH)

	noCal := testsupport.DefaultMEMRFixture()
	noCal.NoCalibration = true

	shortEpochs := testsupport.DefaultMEMRFixture()
	shortEpochs.EpochSamples = 1500

	junk := filepath.Join(dir, "junk.db")
	testsupport.WriteText(t, junk, "")

	tests := []struct {
		name string
		path string
		want memr.Kind
	}{
		{name: "absent", path: filepath.Join(dir, "absent.db"), want: memr.KindOpen},
		{name: "not a recording", path: junk, want: memr.KindOpen},
		{name: "missing setting", path: testsupport.MustCreateRecording(t, filepath.Join(dir, "nosetting.db"), missingSetting), want: memr.KindSettings},
		{name: "no calibration", path: testsupport.MustCreateRecording(t, filepath.Join(dir, "nocal.db"), noCal), want: memr.KindCalibration},
		{name: "short epochs", path: testsupport.MustCreateRecording(t, filepath.Join(dir, "short.db"), shortEpochs), want: memr.KindData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := memr.ProcessFile(context.Background(), tt.path, memr.Options{})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := memr.KindOf(err); got != tt.want {
				t.Fatalf("KindOf = %s, want %s (err %v)", got, tt.want, err)
			}
		})
	}
	if _, err := memr.ProcessFile(context.Background(), tests[2].path, memr.Options{}); !errors.Is(err, recording.ErrMissingSetting) {
		t.Fatalf("missing setting should wrap ErrMissingSetting, got %v", err)
	}
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	first := testsupport.MustCreateRecording(t, filepath.Join(dir, "a.db"), testsupport.DefaultMEMRFixture())
	malformed := filepath.Join(dir, "b.db")
	testsupport.WriteText(t, malformed, "")
	last := testsupport.MustCreateRecording(t, filepath.Join(dir, "c.db"), testsupport.DefaultMEMRFixture())

	outcomes := memr.RunBatch(context.Background(), []string{first, malformed, filepath.Join(dir, "gone.db"), last}, memr.Options{})
	if len(outcomes) != 4 {
		t.Fatalf("expected an outcome per path, got %d", len(outcomes))
	}
	wantKinds := []memr.Kind{memr.KindOK, memr.KindOpen, memr.KindOpen, memr.KindOK}
	for i, o := range outcomes {
		if o.Kind != wantKinds[i] {
			t.Fatalf("outcome %d (%s) kind = %s, want %s (err %v)", i, o.Path, o.Kind, wantKinds[i], o.Err)
		}
	}
	if len(outcomes[3].Figures) != len(memr.Labels) {
		t.Fatalf("last file should still be fully processed: %v", outcomes[3].Figures)
	}
	tally := memr.Tally(outcomes)
	if tally[memr.KindOK] != 2 || tally[memr.KindOpen] != 2 {
		t.Fatalf("unexpected tally: %v", tally)
	}
}

func TestRunBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := memr.RunBatch(ctx, []string{"a.db", "b.db"}, memr.Options{})
	for _, o := range outcomes {
		if o.Kind != memr.KindCanceled || !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	}
}

func TestRunBatchUsesOpener(t *testing.T) {
	var opened []string
	opts := memr.Options{
		Open: func(ctx context.Context, path string) (memr.Source, error) {
			opened = append(opened, path)
			return nil, errors.New("boom")
		},
	}
	outcomes := memr.RunBatch(context.Background(), []string{"x.db", "y.db"}, opts)
	if len(opened) != 2 || outcomes[1].Kind != memr.KindOpen {
		t.Fatalf("opened=%v outcomes=%+v", opened, outcomes)
	}
}
