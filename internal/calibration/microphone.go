package calibration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	microphoneSensitivityFile = "microphone_sensitivity.json"
	microphoneSensitivityKey  = "mic sens overall (mV/Pa)"
)

// CFTSMicrophoneLoader reads microphone calibrations from a tree laid out as
// <dir>/<microphone>/<sortable prefix> <microphone>/microphone_sensitivity.json.
type CFTSMicrophoneLoader struct {
	name string
	dir  string
}

// NewCFTSMicrophoneLoader returns a loader reading from dir.
func NewCFTSMicrophoneLoader(qualname, dir string) *CFTSMicrophoneLoader {
	return &CFTSMicrophoneLoader{name: qualname, dir: dir}
}

func (l *CFTSMicrophoneLoader) Label() string { return "CFTS" }

func (l *CFTSMicrophoneLoader) Name() string { return l.name }

// Dir returns the microphone calibration root.
func (l *CFTSMicrophoneLoader) Dir() string { return l.dir }

func (l *CFTSMicrophoneLoader) ListChoices(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list microphone calibrations in %s: %w", l.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// CurrentCalibration returns the most recent calibration directory for entry.
// Directory names carry a sortable prefix, so the lexicographically greatest
// match is the newest.
func (l *CFTSMicrophoneLoader) CurrentCalibration(entry string) (string, error) {
	if !plainEntry(entry) {
		return "", fmt.Errorf("%w: invalid microphone entry %q", ErrNoCalibration, entry)
	}
	entryDir := filepath.Join(l.dir, entry)
	children, err := os.ReadDir(entryDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("list %s: %w", entryDir, err)
	}
	var candidates []string
	for _, child := range children {
		if strings.HasSuffix(child.Name(), " "+entry) {
			candidates = append(candidates, child.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w for microphone %q in %s", ErrNoCalibration, entry, entryDir)
	}
	sort.Strings(candidates)
	return filepath.Join(entryDir, candidates[len(candidates)-1]), nil
}

func (l *CFTSMicrophoneLoader) Load(ctx context.Context, entry string) (Calibration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current, err := l.CurrentCalibration(entry)
	if err != nil {
		return nil, err
	}
	sensPath := filepath.Join(current, microphoneSensitivityFile)
	data, err := os.ReadFile(sensPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrMalformed, sensPath, err)
	}
	var content map[string]any
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrMalformed, sensPath, err)
	}
	raw, ok := content[microphoneSensitivityKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %q", ErrMalformed, sensPath, microphoneSensitivityKey)
	}
	sens, ok := raw.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %q is not a number", ErrMalformed, sensPath, microphoneSensitivityKey)
	}
	attrs := Attrs{
		CalibrationFile: current,
		Loader:          l.name,
		Name:            entry,
		Extra:           map[string]any{"calibration": content},
	}
	cal, err := NewFlatFromMVPerPa(sens, attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", sensPath, err)
	}
	return cal, nil
}
