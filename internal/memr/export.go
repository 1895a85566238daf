package memr

import (
	"fmt"
	"path/filepath"

	"cfts/internal/recording"
)

// ExportStimulusTrain writes the averaged stimulus train of each elicitor
// level as "<stem> stimulus train <level> dB.wav".
func ExportStimulusTrain(a *Analysis, dir, stem string) ([]string, error) {
	var written []string
	for _, trace := range a.Train {
		path := filepath.Join(dir, fmt.Sprintf("%s %s %s dB.wav", stem, LabelStimulusTrain, formatLevel(trace.Level)))
		if err := recording.WriteWAV(path, trace.Values, a.SampleRate); err != nil {
			return written, fmt.Errorf("export level %s: %w", formatLevel(trace.Level), err)
		}
		written = append(written, path)
	}
	return written, nil
}
