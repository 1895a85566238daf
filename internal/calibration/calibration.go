package calibration

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// referencePressure is 20 µPa, the 0 dB SPL reference.
const referencePressure = 20e-6

// Attrs identifies where a calibration came from. The values are persisted
// alongside experiment data so the loaded calibration can be audited later.
type Attrs struct {
	CalibrationFile string         `json:"calibration_file"`
	Loader          string         `json:"loader"`
	Name            string         `json:"name"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// Calibration converts measured RMS voltage into sound pressure level.
//
// SPL(f, v) = 20·log10(v) + Sensitivity(f).
type Calibration interface {
	Sensitivity(freqHz float64) float64
	SPL(freqHz, vrms float64) float64
	Attrs() Attrs
}

// DB returns 20·log10(v).
func DB(v float64) float64 {
	return 20 * math.Log10(v)
}

// FlatCalibration has the same sensitivity at every frequency.
type FlatCalibration struct {
	SensitivityDB float64
	// MVPerPa is the source sensitivity when built from a microphone datasheet
	// value; zero when the calibration was built directly from dB.
	MVPerPa float64
	attrs   Attrs
}

// NewFlatFromMVPerPa builds a flat calibration from a sensitivity in mV/Pa.
func NewFlatFromMVPerPa(mvPerPa float64, attrs Attrs) (*FlatCalibration, error) {
	if math.IsNaN(mvPerPa) || math.IsInf(mvPerPa, 0) || mvPerPa <= 0 {
		return nil, fmt.Errorf("%w: sensitivity %v mV/Pa must be positive", ErrMalformed, mvPerPa)
	}
	return &FlatCalibration{
		SensitivityDB: -DB(mvPerPa*1e-3) - DB(referencePressure),
		MVPerPa:       mvPerPa,
		attrs:         attrs,
	}, nil
}

// NewFlat builds a flat calibration from a sensitivity already expressed in dB.
func NewFlat(sensitivityDB float64, attrs Attrs) *FlatCalibration {
	return &FlatCalibration{SensitivityDB: sensitivityDB, attrs: attrs}
}

func (c *FlatCalibration) Sensitivity(float64) float64 { return c.SensitivityDB }

func (c *FlatCalibration) SPL(freqHz, vrms float64) float64 {
	return DB(vrms) + c.Sensitivity(freqHz)
}

func (c *FlatCalibration) Attrs() Attrs { return c.attrs }

// InterpCalibration linearly interpolates sensitivity between measured
// frequencies and holds the end values outside the measured range.
type InterpCalibration struct {
	Frequencies []float64
	Levels      []float64
	attrs       Attrs
	curve       interp.PiecewiseLinear
}

// NewInterpFromSPL builds a calibration from a measured SPL curve obtained
// while driving the transducer at vrms volts.
func NewInterpFromSPL(frequencies, spl []float64, vrms float64, attrs Attrs) (*InterpCalibration, error) {
	if len(frequencies) != len(spl) {
		return nil, fmt.Errorf("%w: %d frequencies but %d levels", ErrParse, len(frequencies), len(spl))
	}
	if len(frequencies) == 0 {
		return nil, fmt.Errorf("%w: calibration has no points", ErrParse)
	}
	points := make([][2]float64, len(frequencies))
	for i := range frequencies {
		points[i] = [2]float64{frequencies[i], spl[i] - DB(vrms)}
	}
	sort.Slice(points, func(i, j int) bool { return points[i][0] < points[j][0] })

	c := &InterpCalibration{
		Frequencies: make([]float64, len(points)),
		Levels:      make([]float64, len(points)),
		attrs:       attrs,
	}
	for i, p := range points {
		if i > 0 && p[0] == points[i-1][0] {
			return nil, fmt.Errorf("%w: duplicate frequency %v Hz", ErrParse, p[0])
		}
		c.Frequencies[i] = p[0]
		c.Levels[i] = p[1]
	}
	// PiecewiseLinear needs two knots; a single point is a flat curve.
	if len(points) > 1 {
		if err := c.curve.Fit(c.Frequencies, c.Levels); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
	}
	return c, nil
}

func (c *InterpCalibration) Sensitivity(freqHz float64) float64 {
	n := len(c.Frequencies)
	switch {
	case n == 1 || freqHz <= c.Frequencies[0]:
		return c.Levels[0]
	case freqHz >= c.Frequencies[n-1]:
		return c.Levels[n-1]
	}
	return c.curve.Predict(freqHz)
}

func (c *InterpCalibration) SPL(freqHz, vrms float64) float64 {
	return DB(vrms) + c.Sensitivity(freqHz)
}

func (c *InterpCalibration) Attrs() Attrs { return c.attrs }
