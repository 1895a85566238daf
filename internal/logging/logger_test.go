package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cfts/internal/config"
	"cfts/internal/logging"
	"cfts/internal/session"
)

func TestNewConsoleLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "cfts.log")
	noColor := false
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
		Color:       &noColor,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "memr").Info("figure saved", logging.String("label", "memr"), logging.Int("count", 3))
	logger.Debug("hidden")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"INFO", "[memr]", "figure saved", "label=memr", "count=3"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
	if strings.Contains(text, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", text)
	}
	if strings.Contains(text, "\x1b[") {
		t.Fatalf("expected no ANSI codes with color disabled: %q", text)
	}
}

func TestDebugLevelAddsSource(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "json message" || entry["k"] != "v" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := session.WithRunID(context.Background(), "run-1")
	ctx = session.WithRecording(ctx, "/data/mouse 1.db")
	ctx = session.WithStage(ctx, "render")
	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	want := map[string]string{
		logging.FieldRunID:     "run-1",
		logging.FieldRecording: "/data/mouse 1.db",
		logging.FieldStage:     "render",
	}
	for key, value := range want {
		if entry[key] != value {
			t.Fatalf("field %s = %v, want %q", key, entry[key], value)
		}
	}
}

func TestConsoleSubjectUsesRecordingBaseAndStage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.log")
	noColor := false
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := session.WithRecording(context.Background(), "/data/ear.db")
	ctx = session.WithStage(ctx, "analysis")
	logging.WithContext(ctx, logger).Info("processing")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "ear.db (analysis)") {
		t.Fatalf("expected subject in %q", content)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "skipped entry", "calibration_entry_skipped", logging.Error(errors.New("bad")))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if entry[logging.FieldEventType] != "calibration_entry_skipped" {
		t.Fatalf("unexpected event type: %v", entry[logging.FieldEventType])
	}
	if entry[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default error hint in %v", entry)
	}
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	logger, err := logging.NewFromConfig(&cfg, "cfts.log")
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("hello")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "cfts.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestJSONSubjectCombinesStarshipRecordingAndStage(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "subject.json")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := session.WithStarship(context.Background(), "A")
	ctx = session.WithRecording(ctx, "/data/ear.db")
	logging.WithContext(ctx, logger).Info("first", logging.String(logging.FieldStage, "render"))
	logger.Info("plain")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), content)
	}
	var first, plain map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if first[logging.FieldSubject] != "starship A ear.db (render)" {
		t.Fatalf("unexpected subject: %v", first[logging.FieldSubject])
	}
	if first[logging.FieldRecording] != "/data/ear.db" {
		t.Fatalf("full recording path should be kept, got %v", first[logging.FieldRecording])
	}
	if err := json.Unmarshal([]byte(lines[1]), &plain); err != nil {
		t.Fatalf("decode plain line: %v", err)
	}
	if _, ok := plain[logging.FieldSubject]; ok {
		t.Fatalf("plain record should have no subject: %v", plain)
	}
}

func TestConsoleFormatsMeasurementValues(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "values.log")
	noColor := false
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("levels",
		logging.Float64("sensitivity_db", 0.1+0.2),
		logging.Any("levels", []float64{70, 80.5}),
		logging.Float64("sample_rate", 100000),
		logging.String("path", "a b"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, want := range []string{"sensitivity_db=0.3 ", `levels="[70 80.5]"`, "sample_rate=100000", `path="a b"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in %q", want, text)
		}
	}
}
