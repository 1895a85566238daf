package memr

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"cfts/internal/calibration"
	"cfts/internal/recording"
	"cfts/internal/spectrum"
)

// ErrData reports recordings whose epochs cannot be analyzed.
var ErrData = errors.New("invalid MEMR data")

// windowTolerance absorbs float error when converting window edges to
// sample indices so an edge that lands on a sample includes it.
const windowTolerance = 1e-9

// LevelTrace is one curve per elicitor level.
type LevelTrace struct {
	Level  float64
	Values []float64
}

// Segment is one repeat cut from one epoch.
type Segment struct {
	Epoch    int
	Repeat   int
	Level    float64
	Polarity int
	Samples  []float64
}

// Analysis holds every series the figures are drawn from.
type Analysis struct {
	Settings   Settings
	SampleRate float64

	// TrainTime is in seconds from epoch start.
	TrainTime []float64
	// Train is the positive-polarity mean epoch per elicitor level.
	Train []LevelTrace

	ElicitorFreqs []float64
	// ElicitorSPL is the mean elicitor spectrum per level over every repeat
	// that carries an elicitor, restricted to bins finite at all levels.
	ElicitorSPL []LevelTrace

	// ProbeTime is in seconds from repeat start.
	ProbeTime      []float64
	ProbeWaveforms [][]float64
	ProbeFreqs     []float64
	ProbeSPL       [][]float64

	// MEMR[r] is the mean probe level change at repeat r relative to repeat 0
	// of the same epoch, per elicitor level.
	MEMR [][]LevelTrace
}

// FinalMEMR returns the reflex measured on the last repeat.
func (a *Analysis) FinalMEMR() []LevelTrace {
	return a.MEMR[a.Settings.ElicitorN]
}

// Analyze computes the summary series for one recording. probeScale widens
// the probe window to probeScale times the chirp duration.
func Analyze(epochs []recording.Epoch, fs float64, cal calibration.Calibration, s Settings, probeScale float64) (*Analysis, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !(fs > 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrData, fs)
	}
	if len(epochs) == 0 {
		return nil, fmt.Errorf("%w: recording has no epochs", ErrData)
	}
	if probeScale <= 0 {
		probeScale = 1.5
	}
	epochLen := len(epochs[0].Samples)
	for i, e := range epochs {
		if len(e.Samples) != epochLen {
			return nil, fmt.Errorf("%w: epoch %d has %d samples, epoch 0 has %d", ErrData, i, len(e.Samples), epochLen)
		}
	}

	a := &Analysis{Settings: s, SampleRate: fs}
	if err := a.stimulusTrain(epochs, epochLen); err != nil {
		return nil, err
	}
	segments, err := SplitRepeats(epochs, fs, s)
	if err != nil {
		return nil, err
	}
	if err := a.elicitor(segments, cal); err != nil {
		return nil, err
	}
	if err := a.probe(segments, cal, probeScale); err != nil {
		return nil, err
	}
	a.reflex(segments)
	return a, nil
}

func (a *Analysis) stimulusTrain(epochs []recording.Epoch, epochLen int) error {
	groups := make(map[float64][][]float64)
	for _, e := range epochs {
		if e.ElicitorPolarity == 1 {
			groups[e.ElicitorLevel] = append(groups[e.ElicitorLevel], e.Samples)
		}
	}
	if len(groups) == 0 {
		return fmt.Errorf("%w: no positive-polarity epochs", ErrData)
	}
	train, err := meanByLevel(groups)
	if err != nil {
		return err
	}
	a.Train = train
	a.TrainTime = sampleTimes(0, epochLen, a.SampleRate)
	return nil
}

// SplitRepeats cuts each epoch into elicitor_n+1 repeats of one repeat
// period each. Trailing samples beyond the last repeat are ignored.
func SplitRepeats(epochs []recording.Epoch, fs float64, s Settings) ([]Segment, error) {
	repeats := s.ElicitorN + 1
	var segments []Segment
	for i, e := range epochs {
		bounds := make([]int, repeats+1)
		for r := range bounds {
			bounds[r] = int(math.Round(float64(r) * s.RepeatPeriod * fs))
		}
		if bounds[repeats] > len(e.Samples) {
			return nil, fmt.Errorf("%w: epoch %d has %d samples, %d repeats of %v s need %d",
				ErrData, i, len(e.Samples), repeats, s.RepeatPeriod, bounds[repeats])
		}
		for r := 0; r < repeats; r++ {
			segments = append(segments, Segment{
				Epoch:    i,
				Repeat:   r,
				Level:    e.ElicitorLevel,
				Polarity: e.ElicitorPolarity,
				Samples:  e.Samples[bounds[r]:bounds[r+1]],
			})
		}
	}
	return segments, nil
}

func (a *Analysis) elicitor(segments []Segment, cal calibration.Calibration) error {
	repeatLen := minSegmentLen(segments)
	start := int(math.Ceil(a.Settings.ElicitorDelay*a.SampleRate - windowTolerance))
	if repeatLen-start < 2 {
		return fmt.Errorf("%w: elicitor window starting at %v s is empty", ErrData, a.Settings.ElicitorDelay)
	}
	analyzer, err := spectrum.NewAnalyzer(repeatLen-start, a.SampleRate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrData, err)
	}
	groups := make(map[float64][][]float64)
	for _, seg := range segments {
		if seg.Repeat >= a.Settings.ElicitorN {
			continue
		}
		psd, err := analyzer.PSD(seg.Samples[start:repeatLen])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrData, err)
		}
		groups[seg.Level] = append(groups[seg.Level], psd)
	}
	means, err := meanByLevel(groups)
	if err != nil {
		return err
	}
	freqs := analyzer.Frequencies()
	rows := make([][]float64, len(means))
	for i := range means {
		rows[i] = toSPL(freqs, means[i].Values, cal)
	}
	keep := spectrum.FiniteColumns(rows)
	a.ElicitorFreqs = spectrum.Pick(freqs, keep)
	a.ElicitorSPL = make([]LevelTrace, len(means))
	for i := range means {
		a.ElicitorSPL[i] = LevelTrace{Level: means[i].Level, Values: spectrum.Pick(rows[i], keep)}
	}
	return nil
}

func (a *Analysis) probe(segments []Segment, cal calibration.Calibration, scale float64) error {
	s := a.Settings
	start := int(math.Ceil(s.ProbeDelay*a.SampleRate - windowTolerance))
	stop := int(math.Floor((s.ProbeDelay+scale*s.ProbeDuration)*a.SampleRate+windowTolerance)) + 1
	repeatLen := minSegmentLen(segments)
	if stop > repeatLen {
		stop = repeatLen
	}
	if stop-start < 2 {
		return fmt.Errorf("%w: probe window [%v, %v] s does not fit a %d-sample repeat",
			ErrData, s.ProbeDelay, s.ProbeDelay+scale*s.ProbeDuration, repeatLen)
	}
	analyzer, err := spectrum.NewAnalyzer(stop-start, a.SampleRate)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrData, err)
	}
	a.ProbeTime = sampleTimes(start, stop, a.SampleRate)
	a.ProbeFreqs = analyzer.Frequencies()
	a.ProbeWaveforms = make([][]float64, len(segments))
	a.ProbeSPL = make([][]float64, len(segments))
	for i, seg := range segments {
		window := seg.Samples[start:stop]
		psd, err := analyzer.PSD(window)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrData, err)
		}
		a.ProbeWaveforms[i] = window
		a.ProbeSPL[i] = toSPL(a.ProbeFreqs, psd, cal)
	}
	return nil
}

// reflex relies on SplitRepeats emitting each epoch's repeats contiguously
// starting at repeat 0.
func (a *Analysis) reflex(segments []Segment) {
	repeats := a.Settings.ElicitorN + 1
	groups := make([]map[float64][][]float64, repeats)
	for r := range groups {
		groups[r] = make(map[float64][][]float64)
	}
	var baseline []float64
	for i, seg := range segments {
		if seg.Repeat == 0 {
			baseline = a.ProbeSPL[i]
		}
		delta := make([]float64, len(baseline))
		for j := range delta {
			delta[j] = a.ProbeSPL[i][j] - baseline[j]
		}
		groups[seg.Repeat][seg.Level] = append(groups[seg.Repeat][seg.Level], delta)
	}
	a.MEMR = make([][]LevelTrace, repeats)
	for r := range groups {
		// Rows within a group share the probe analyzer length, so meanByLevel cannot fail here.
		a.MEMR[r], _ = meanByLevel(groups[r])
	}
}

func toSPL(freqs, psd []float64, cal calibration.Calibration) []float64 {
	out := make([]float64, len(psd))
	for i, v := range psd {
		out[i] = calibration.DB(v) + cal.Sensitivity(freqs[i])
	}
	return out
}

func meanByLevel(groups map[float64][][]float64) ([]LevelTrace, error) {
	levels := make([]float64, 0, len(groups))
	for level := range groups {
		levels = append(levels, level)
	}
	sort.Float64s(levels)
	out := make([]LevelTrace, len(levels))
	for i, level := range levels {
		mean, err := spectrum.Mean(groups[level])
		if err != nil {
			return nil, fmt.Errorf("%w: level %v: %w", ErrData, level, err)
		}
		out[i] = LevelTrace{Level: level, Values: mean}
	}
	return out, nil
}

func minSegmentLen(segments []Segment) int {
	n := math.MaxInt
	for _, seg := range segments {
		if len(seg.Samples) < n {
			n = len(seg.Samples)
		}
	}
	return n
}

func sampleTimes(start, stop int, fs float64) []float64 {
	out := make([]float64, stop-start)
	for i := range out {
		out[i] = float64(start+i) / fs
	}
	return out
}
