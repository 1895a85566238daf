// Package spectrum computes amplitude spectra and the dB helpers the MEMR
// summary uses to express them as sound pressure levels.
package spectrum

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Analyzer computes spectra for signals of one fixed length.
type Analyzer struct {
	n     int
	fs    float64
	fft   *fourier.FFT
	freqs []float64
}

// NewAnalyzer prepares an FFT for n-sample signals sampled at fs.
func NewAnalyzer(n int, fs float64) (*Analyzer, error) {
	if n < 2 {
		return nil, fmt.Errorf("spectrum: signal length %d too short", n)
	}
	if fs <= 0 {
		return nil, fmt.Errorf("spectrum: sample rate %v must be positive", fs)
	}
	fft := fourier.NewFFT(n)
	freqs := make([]float64, n/2+1)
	for i := range freqs {
		freqs[i] = fft.Freq(i) * fs
	}
	return &Analyzer{n: n, fs: fs, fft: fft, freqs: freqs}, nil
}

// Frequencies returns the one-sided bin frequencies in Hz.
func (a *Analyzer) Frequencies() []float64 {
	out := make([]float64, len(a.freqs))
	copy(out, a.freqs)
	return out
}

// PSD returns the one-sided RMS amplitude spectrum of samples: each bin holds
// the RMS value of the sinusoid at that frequency. The DC bin holds the mean.
func (a *Analyzer) PSD(samples []float64) ([]float64, error) {
	if len(samples) != a.n {
		return nil, fmt.Errorf("spectrum: got %d samples, analyzer expects %d", len(samples), a.n)
	}
	coeffs := a.fft.Coefficients(nil, samples)
	out := make([]float64, len(coeffs))
	n := float64(a.n)
	for i, c := range coeffs {
		out[i] = 2 * cmplx.Abs(c) / n / math.Sqrt2
	}
	out[0] = cmplx.Abs(coeffs[0]) / n
	return out, nil
}

// DB returns 20·log10(v) element-wise.
func DB(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = 20 * math.Log10(v)
	}
	return out
}

// Mean returns the element-wise mean of equal-length rows.
func Mean(rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("spectrum: mean of zero rows")
	}
	out := make([]float64, len(rows[0]))
	for i, row := range rows {
		if len(row) != len(out) {
			return nil, fmt.Errorf("spectrum: row %d has %d values, want %d", i, len(row), len(out))
		}
		floats.Add(out, row)
	}
	floats.Scale(1/float64(len(rows)), out)
	return out, nil
}

// FiniteColumns returns the indices of columns finite in every row.
func FiniteColumns(rows [][]float64) []int {
	if len(rows) == 0 {
		return nil
	}
	var keep []int
	for col := range rows[0] {
		ok := true
		for _, row := range rows {
			if math.IsNaN(row[col]) || math.IsInf(row[col], 0) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, col)
		}
	}
	return keep
}

// Pick returns values at the given indices.
func Pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
