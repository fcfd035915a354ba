package backend

import (
	"math"
	"testing"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/circadian"
	"github.com/somnolab/actigraphy/internal/sleep"
)

// stillRecording builds a flat 1g recording of the given duration.
func stillRecording(rate float64, seconds int) *accel.RawSampleSet {
	n := int(rate) * seconds
	raw := &accel.RawSampleSet{
		X:          make([]float64, n),
		Y:          make([]float64, n),
		Z:          make([]float64, n),
		Timestamps: make([]float64, n),
		SampleRate: rate,
	}
	for i := 0; i < n; i++ {
		raw.Z[i] = 1
		raw.Timestamps[i] = float64(i) / rate
	}
	return raw
}

func TestEnginePipelineSmoke(t *testing.T) {
	e := newEngine("portable", accel.PortableSolver{})
	raw := stillRecording(10, 600)

	imp, err := e.Impute(raw, accel.DefaultGapTolerance)
	if err != nil {
		t.Fatalf("Impute: %v", err)
	}
	if imp.GapCount != 0 {
		t.Errorf("gap count = %d on a continuous recording", imp.GapCount)
	}

	epochs, err := e.Epochs(raw, 60)
	if err != nil {
		t.Fatalf("Epochs: %v", err)
	}
	if epochs.Len() != 10 {
		t.Errorf("epochs = %d, want 10", epochs.Len())
	}

	enmo, err := e.ENMO(raw)
	if err != nil {
		t.Fatalf("ENMO: %v", err)
	}
	if enmo.Values[0] != 0 {
		t.Errorf("still ENMO = %v, want 0", enmo.Values[0])
	}

	angle, err := e.Angle(raw)
	if err != nil {
		t.Fatalf("Angle: %v", err)
	}
	if math.Abs(angle.Values[0]-90) > 1e-9 {
		t.Errorf("still angle = %v, want 90", angle.Values[0])
	}

	scores, err := e.ScoreSleep("sadeh", epochs.Magnitude)
	if err != nil {
		t.Fatalf("ScoreSleep: %v", err)
	}
	if len(scores.Scores) != epochs.Len() {
		t.Errorf("scores = %d, want %d", len(scores.Scores), epochs.Len())
	}

	sib, err := e.SustainedInactivity(raw, sleep.DefaultSIBParams())
	if err != nil {
		t.Fatalf("SustainedInactivity: %v", err)
	}
	if len(sib.Scores) == 0 {
		t.Error("no SIB epochs")
	}
}

func TestEngineNonwearDispatch(t *testing.T) {
	e := newEngine("portable", accel.PortableSolver{})
	raw := stillRecording(1, 2*3600)

	res, err := e.Nonwear("", raw, nil)
	if err != nil {
		t.Fatalf("Nonwear default: %v", err)
	}
	if res.Algorithm != "stationary-2013" {
		t.Errorf("default algorithm = %q", res.Algorithm)
	}

	epochs, err := e.Epochs(raw, 60)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Nonwear("count-90min", nil, epochs); err != nil {
		t.Errorf("count-90min: %v", err)
	}
	if _, err := e.Nonwear("count-90min", raw, nil); err == nil {
		t.Error("count-90min without epochs succeeded")
	}

	raw.CapSense = make([]bool, 120)
	if _, err := e.Nonwear("capsense", raw, nil); err != nil {
		t.Errorf("capsense: %v", err)
	}
	if _, err := e.Nonwear("bogus", raw, nil); err == nil {
		t.Error("unknown algorithm succeeded")
	}
}

func TestEngineRhythmAndAgreement(t *testing.T) {
	e := newEngine("portable", accel.PortableSolver{})

	// Two identical days of 1-minute epochs, active 08:00-18:00.
	day := make([]float64, 1440)
	for i := 480; i < 1080; i++ {
		day[i] = 50
	}
	activity := append(append([]float64{}, day...), day...)

	summary, err := e.Rhythm(activity, circadian.DefaultActiveWindowsParams(), 1440)
	if err != nil {
		t.Fatalf("Rhythm: %v", err)
	}
	if math.Abs(summary.InterdailyStability-1) > 1e-9 {
		t.Errorf("IS = %v, want 1 for identical days", summary.InterdailyStability)
	}
	if summary.Windows.RelativeAmplitude != 1 {
		t.Errorf("relative amplitude = %v, want 1", summary.Windows.RelativeAmplitude)
	}

	a := []bool{true, true, false, false}
	ag, err := e.Agreement(a, a)
	if err != nil {
		t.Fatalf("Agreement: %v", err)
	}
	if ag.Kappa != 1 {
		t.Errorf("kappa = %v, want 1", ag.Kappa)
	}
}
