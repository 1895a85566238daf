package memr

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"cfts/internal/spectrum"
)

// Figure labels. They name the output files and must stay stable.
const (
	LabelStimulusTrain = "stimulus train"
	LabelElicitorPSD   = "elicitor PSD"
	LabelProbeWaveform = "probe waveform"
	LabelProbePSD      = "probe PSD"
	LabelMEMR          = "MEMR"
)

// Labels lists the figures in the order they are written.
var Labels = []string{LabelStimulusTrain, LabelElicitorPSD, LabelProbeWaveform, LabelProbePSD, LabelMEMR}

var (
	traceColor    = color.NRGBA{A: 255}
	overlayColor  = color.NRGBA{A: 26}
	markerColor   = color.NRGBA{R: 31, G: 119, B: 180, A: 128}
	titleCaser    = cases.Title(language.English, cases.NoLower)
	thinLineWidth = vg.Points(0.3)
)

// FigureRange bounds the frequency axis of the elicitor spectrum.
type FigureRange struct {
	MinHz float64
	MaxHz float64
}

// FigureName returns the file name for label.
func FigureName(stem, label, format string) string {
	return fmt.Sprintf("%s %s.%s", stem, label, format)
}

func newFigure(stem, label string) *plot.Plot {
	p := plot.New()
	p.Title.Text = stem + ": " + titleCaser.String(label)
	return p
}

func save(p *plot.Plot, width, height vg.Length, dir, stem, label, format string) (string, error) {
	path := filepath.Join(dir, FigureName(stem, label, format))
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("save %s: %w", label, err)
	}
	return path, nil
}

func renderStimulusTrain(a *Analysis, dir, stem, format string) (string, error) {
	p := newFigure(stem, LabelStimulusTrain)
	p.X.Label.Text = "Time (msec)"
	p.Y.Label.Text = "Elicitor level (dB SPL)"

	xs := scaleAxis(a.TrainTime, 1e3)
	peak := 0.0
	for _, trace := range a.Train {
		for _, v := range trace.Values {
			peak = math.Max(peak, math.Abs(v))
		}
	}
	ticks, err := addWaterfall(p, xs, a.Train, func(values []float64) []float64 {
		return scaleBy(values, peak)
	})
	if err != nil {
		return "", err
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	for i := 0; i <= a.Settings.ElicitorN+1; i++ {
		x := float64(i) * a.Settings.RepeatPeriod * 1e3
		if err := addVLine(p, x, markerColor); err != nil {
			return "", err
		}
	}
	height := vg.Length(math.Max(2, float64(len(a.Train)))) * vg.Inch
	return save(p, 6*vg.Inch, height, dir, stem, LabelStimulusTrain, format)
}

func renderElicitorPSD(a *Analysis, dir, stem, format string, rng FigureRange) (string, error) {
	p := newFigure(stem, LabelElicitorPSD)
	p.X.Label.Text = "Frequency (kHz)"
	p.Y.Label.Text = "Elicitor level (dB SPL)"

	idx := bandIndices(a.ElicitorFreqs, rng.MinHz, rng.MaxHz)
	if len(idx) < 2 {
		return "", fmt.Errorf("elicitor spectrum has no bins between %v and %v Hz", rng.MinHz, rng.MaxHz)
	}
	xs := scaleAxis(spectrum.Pick(a.ElicitorFreqs, idx), 1e-3)
	traces := make([]LevelTrace, len(a.ElicitorSPL))
	spread := 0.0
	for i, t := range a.ElicitorSPL {
		values := centered(spectrum.Pick(t.Values, idx))
		for _, v := range values {
			spread = math.Max(spread, math.Abs(v))
		}
		traces[i] = LevelTrace{Level: t.Level, Values: values}
	}
	ticks, err := addWaterfall(p, xs, traces, func(values []float64) []float64 {
		return scaleBy(values, spread)
	})
	if err != nil {
		return "", err
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	useLogFrequency(p, rng.MinHz*1e-3, rng.MaxHz*1e-3)
	return save(p, 6*vg.Inch, vg.Length(math.Max(2, float64(len(traces))))*vg.Inch, dir, stem, LabelElicitorPSD, format)
}

func renderProbeWaveform(a *Analysis, dir, stem, format string) (string, error) {
	p := newFigure(stem, LabelProbeWaveform)
	p.X.Label.Text = "Time (msec)"
	p.Y.Label.Text = "Signal (V)"
	xs := scaleAxis(a.ProbeTime, 1e3)
	for _, w := range a.ProbeWaveforms {
		if err := addLine(p, xs, w, overlayColor, thinLineWidth); err != nil {
			return "", err
		}
	}
	return save(p, 8*vg.Inch, 4*vg.Inch, dir, stem, LabelProbeWaveform, format)
}

func renderProbePSD(a *Analysis, dir, stem, format string) (string, error) {
	p := newFigure(stem, LabelProbePSD)
	p.X.Label.Text = "Frequency (kHz)"
	p.Y.Label.Text = "Level (dB SPL)"
	idx := positiveIndices(a.ProbeFreqs)
	xs := scaleAxis(spectrum.Pick(a.ProbeFreqs, idx), 1e-3)
	for _, row := range a.ProbeSPL {
		if err := addLine(p, xs, spectrum.Pick(row, idx), overlayColor, thinLineWidth); err != nil {
			return "", err
		}
	}
	for _, f := range []float64{a.Settings.ProbeFL, a.Settings.ProbeFH} {
		if f > 0 {
			if err := addVLine(p, f*1e-3, markerColor); err != nil {
				return "", err
			}
		}
	}
	if len(xs) > 0 {
		useLogFrequency(p, xs[0], xs[len(xs)-1])
	}
	return save(p, 8*vg.Inch, 4*vg.Inch, dir, stem, LabelProbePSD, format)
}

func renderMEMR(a *Analysis, dir, stem, format string) (string, error) {
	p := newFigure(stem, LabelMEMR)
	p.X.Label.Text = "Frequency (kHz)"
	p.Y.Label.Text = "Change in probe level (dB)"
	p.Legend.Top = true
	idx := positiveIndices(a.ProbeFreqs)
	xs := scaleAxis(spectrum.Pick(a.ProbeFreqs, idx), 1e-3)
	for i, trace := range a.FinalMEMR() {
		line, err := newLine(xs, spectrum.Pick(trace.Values, idx))
		if err != nil {
			return "", err
		}
		if line == nil {
			continue
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(formatLevel(trace.Level)+" dB SPL", line)
	}
	if len(xs) > 0 {
		useLogFrequency(p, xs[0], xs[len(xs)-1])
	}
	return save(p, 8*vg.Inch, 4*vg.Inch, dir, stem, LabelMEMR, format)
}

// addWaterfall stacks one trace per level, offset by its index, and returns
// the y ticks labelling each trace with its level.
func addWaterfall(p *plot.Plot, xs []float64, traces []LevelTrace, scale func([]float64) []float64) ([]plot.Tick, error) {
	ticks := make([]plot.Tick, 0, len(traces))
	for i, trace := range traces {
		ys := scale(trace.Values)
		for j := range ys {
			ys[j] += float64(i)
		}
		if err := addLine(p, xs, ys, traceColor, thinLineWidth); err != nil {
			return nil, err
		}
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: formatLevel(trace.Level)})
	}
	return ticks, nil
}

func addLine(p *plot.Plot, xs, ys []float64, c color.Color, width vg.Length) error {
	line, err := newLine(xs, ys)
	if err != nil || line == nil {
		return err
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = width
	p.Add(line)
	return nil
}

// newLine builds a line from the finite points of xs/ys. It returns nil when
// no point survives.
func newLine(xs, ys []float64) (*plotter.Line, error) {
	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if i >= len(ys) || !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(pts) == 0 {
		return nil, nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	return line, nil
}

// addVLine spans the current y range, so call it after the data is added.
func addVLine(p *plot.Plot, x float64, c color.Color) error {
	ymin, ymax := p.Y.Min, p.Y.Max
	if !finite(ymin) || !finite(ymax) || ymin >= ymax {
		ymin, ymax = 0, 1
	}
	line, err := plotter.NewLine(plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}})
	if err != nil {
		return fmt.Errorf("build marker: %w", err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(0.75)
	p.Add(line)
	return nil
}

func useLogFrequency(p *plot.Plot, min, max float64) {
	if !(min > 0) || !(max > min) {
		return
	}
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.X.Min = min
	p.X.Max = max
}

func scaleAxis(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}
	return out
}

// scaleBy maps values so the largest magnitude reaches ±0.45, keeping
// neighbouring waterfall traces apart.
func scaleBy(values []float64, peak float64) []float64 {
	out := make([]float64, len(values))
	if !(peak > 0) {
		return out
	}
	for i, v := range values {
		out[i] = 0.45 * v / peak
	}
	return out
}

func centered(values []float64) []float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if finite(v) {
			sum += v
			n++
		}
	}
	out := make([]float64, len(values))
	if n == 0 {
		copy(out, values)
		return out
	}
	mean := sum / float64(n)
	for i, v := range values {
		out[i] = v - mean
	}
	return out
}

func bandIndices(freqs []float64, min, max float64) []int {
	var idx []int
	for i, f := range freqs {
		if f > 0 && f >= min && f <= max {
			idx = append(idx, i)
		}
	}
	return idx
}

func positiveIndices(freqs []float64) []int {
	return bandIndices(freqs, 0, math.Inf(1))
}

func formatLevel(level float64) string {
	return strconv.FormatFloat(level, 'f', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
