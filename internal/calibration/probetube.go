package calibration

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	probeTubeSuffix = "_ProbeTube.calib"
	probeTubeMarker = "Freq(Hz)"
)

// EPLProbeTubeLoader reads probe-tube calibrations exported by the EPL
// calibration software as <name>_ProbeTube.calib files.
type EPLProbeTubeLoader struct {
	name string
	dir  string
}

// NewEPLProbeTubeLoader returns a loader reading from dir.
func NewEPLProbeTubeLoader(qualname, dir string) *EPLProbeTubeLoader {
	return &EPLProbeTubeLoader{name: qualname, dir: dir}
}

func (l *EPLProbeTubeLoader) Label() string { return "EPL" }

func (l *EPLProbeTubeLoader) Name() string { return l.name }

// Dir returns the directory scanned for calibration files.
func (l *EPLProbeTubeLoader) Dir() string { return l.dir }

func (l *EPLProbeTubeLoader) ListChoices(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list probe-tube calibrations in %s: %w", l.dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), probeTubeSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), probeTubeSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the calibration file backing entry.
func (l *EPLProbeTubeLoader) Path(entry string) string {
	return filepath.Join(l.dir, entry+probeTubeSuffix)
}

func (l *EPLProbeTubeLoader) Load(ctx context.Context, entry string) (Calibration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !plainEntry(entry) {
		return nil, fmt.Errorf("%w: invalid probe-tube entry %q", ErrNotFound, entry)
	}
	path := l.Path(entry)
	attrs := Attrs{CalibrationFile: path, Loader: l.name, Name: entry}
	return LoadProbeTubeFile(path, attrs)
}

// LoadProbeTubeFile parses an EPL probe-tube export. Lines before the one
// starting with "Freq(Hz)" are header text; each following non-blank line
// holds a frequency and an SPL measured at 1 Vrms.
func LoadProbeTubeFile(path string, attrs Attrs) (*InterpCalibration, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open probe-tube calibration: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	found := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if strings.HasPrefix(scanner.Text(), probeTubeMarker) {
			found = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s: no %q header line", ErrParse, path, probeTubeMarker)
	}

	var freqs, levels []float64
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: %s:%d: expected 2 columns, got %d", ErrParse, path, lineNo, len(fields))
		}
		freq, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: frequency: %w", ErrParse, path, lineNo, err)
		}
		level, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s:%d: level: %w", ErrParse, path, lineNo, err)
		}
		freqs = append(freqs, freq)
		levels = append(levels, level)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%w: %s: no calibration rows", ErrParse, path)
	}
	cal, err := NewInterpFromSPL(freqs, levels, 1, attrs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cal, nil
}
