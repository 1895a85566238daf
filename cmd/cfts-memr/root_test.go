package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cfts/internal/memr"
	"cfts/internal/testsupport"
)

func runMEMR(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestBatchContinuesPastBadRecording(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "ear.db")
	testsupport.MustCreateRecording(t, good, testsupport.DefaultMEMRFixture())
	bad := filepath.Join(dir, "garbage.db")
	testsupport.WriteText(t, bad, "not a recording")

	out, err := runMEMR(t, "--format", "png", bad, good)
	if err != nil {
		t.Fatalf("batch should succeed without --strict: %v", err)
	}
	if !strings.Contains(out, "open    "+bad) {
		t.Fatalf("expected open failure line for %s, got:\n%s", bad, out)
	}
	if !strings.Contains(out, "ok      "+good) {
		t.Fatalf("expected ok line for %s, got:\n%s", good, out)
	}
	if !strings.Contains(out, "1 ok") || !strings.Contains(out, "1 failed") {
		t.Fatalf("expected summary counts, got:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "ear", "ear MEMR.png")); err != nil {
		t.Fatalf("expected MEMR figure: %v", err)
	}
}

func TestBatchStrictFailsOnAnyError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")
	if _, err := runMEMR(t, "--strict", missing); err == nil {
		t.Fatal("expected --strict to return an error")
	}
}

func TestBatchNoArgumentsIsNoop(t *testing.T) {
	out, err := runMEMR(t)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestBatchRejectsUnknownFormat(t *testing.T) {
	if _, err := runMEMR(t, "--format", "gif", "x.db"); err == nil {
		t.Fatal("expected invalid format to fail")
	}
}

func TestRenderSummaryKeepsFooterCase(t *testing.T) {
	outcomes := []memr.Outcome{
		{Path: "/data/a.db", OutputDir: "/data/a", Kind: memr.KindOK, Figures: []string{"x", "y"}},
		{Path: "/data/b.db", OutputDir: "/data/b", Kind: memr.KindSettings},
		{Path: "/data/c.db", OutputDir: "/data/c", Kind: memr.KindOpen},
	}
	got := renderSummary(outcomes)
	for _, want := range []string{"1 ok", "2 failed", "a.db", "settings"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected summary to contain %q:\n%s", want, got)
		}
	}
}
