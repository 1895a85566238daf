package testsupport

import (
	"context"
	"math"
	"testing"

	"cfts/internal/calibration"
	"cfts/internal/recording"
)

// MEMRFixture describes a synthetic MEMR recording.
type MEMRFixture struct {
	SampleRate float64
	Settings   map[string]float64
	Levels     []float64
	// EpochSamples overrides the epoch length; zero derives it from the settings.
	EpochSamples  int
	NoCalibration bool
}

// DefaultMEMRFixture returns a small but complete recording layout: two
// elicitor levels, both polarities, two elicitor repeats plus the silent one.
func DefaultMEMRFixture() MEMRFixture {
	return MEMRFixture{
		SampleRate: 20000,
		Settings: map[string]float64{
			"repeat_period":                0.05,
			"probe_chirp_delay":            0.002,
			"probe_chirp_duration":         0.004,
			"elicitor_envelope_start_time": 0.01,
			"elicitor_fl":                  4000,
			"elicitor_fh":                  8000,
			"probe_fl":                     2000,
			"probe_fh":                     8000,
			"elicitor_n":                   2,
		},
		Levels: []float64{70, 80},
	}
}

// MustCreateRecording writes the fixture to path and returns path.
func MustCreateRecording(t testing.TB, path string, fx MEMRFixture) string {
	t.Helper()
	ctx := context.Background()

	file, err := recording.Create(ctx, path, fx.SampleRate)
	if err != nil {
		t.Fatalf("recording.Create: %v", err)
	}
	defer file.Close()

	for name, value := range fx.Settings {
		if err := file.PutSetting(ctx, name, value); err != nil {
			t.Fatalf("PutSetting: %v", err)
		}
	}
	if !fx.NoCalibration {
		cal, err := calibration.NewFlatFromMVPerPa(50, calibration.Attrs{Name: "fixture-mic", Loader: "testsupport"})
		if err != nil {
			t.Fatalf("calibration: %v", err)
		}
		if err := file.SetFlatCalibration(ctx, cal); err != nil {
			t.Fatalf("SetFlatCalibration: %v", err)
		}
	}

	period := fx.Settings["repeat_period"]
	repeats := int(fx.Settings["elicitor_n"]) + 1
	repeatLen := int(math.Round(period * fx.SampleRate))
	n := fx.EpochSamples
	if n == 0 {
		n = repeats * repeatLen
	}
	for _, level := range fx.Levels {
		for _, polarity := range []int{1, -1} {
			samples := synthesizeEpoch(n, repeatLen, fx, level, polarity)
			if _, err := file.AddEpoch(ctx, polarity, level, samples); err != nil {
				t.Fatalf("AddEpoch: %v", err)
			}
		}
	}
	return path
}

// synthesizeEpoch places a probe tone at the start of each repeat and an
// elicitor tone after the elicitor delay. The probe shrinks with each
// elicited repeat to mimic the reflex.
func synthesizeEpoch(n, repeatLen int, fx MEMRFixture, level float64, polarity int) []float64 {
	fs := fx.SampleRate
	probeStart := int(fx.Settings["probe_chirp_delay"] * fs)
	probeLen := int(fx.Settings["probe_chirp_duration"] * fs)
	elicitorStart := int(fx.Settings["elicitor_envelope_start_time"] * fs)
	elicitorN := int(fx.Settings["elicitor_n"])
	elicitorAmp := math.Pow(10, (level-80)/20) * 0.1

	samples := make([]float64, n)
	for i := range samples {
		if repeatLen == 0 {
			break
		}
		r, k := i/repeatLen, i%repeatLen
		t := float64(i) / fs
		if k >= probeStart && k < probeStart+probeLen {
			gain := 1 - 0.02*float64(r)*(level-60)/20
			samples[i] += 0.05 * gain * math.Sin(2*math.Pi*4000*t)
		}
		if r < elicitorN && k >= elicitorStart {
			samples[i] += float64(polarity) * elicitorAmp * math.Sin(2*math.Pi*6000*t)
		}
	}
	return samples
}
