package accel

import (
	"fmt"
	"math"
	"sort"
)

// biquadCoefficients holds one second-order section with a0 normalized to 1.
//
// Direct Form II Transposed sign convention:
//
//	y  = B0·x + d0
//	d0 = B1·x − A1·y + d1
//	d1 = B2·x − A2·y
type biquadCoefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// biquadSection is a single biquad with internal state.
type biquadSection struct {
	biquadCoefficients
	d0, d1 float64
}

func (s *biquadSection) process(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		y := s.B0*x + s.d0
		s.d0 = s.B1*x - s.A1*y + s.d1
		s.d1 = s.B2*x - s.A2*y
		out[i] = y
	}
	return out
}

// FilterParams parameterises a filtered-metric strategy. Cutoff is used by
// the low/high-pass forms; Low/High bound the band-pass form. Q defaults to
// 1/√2 (Butterworth response) when zero.
type FilterParams struct {
	Cutoff float64
	Low    float64
	High   float64
	Q      float64
}

// filterDesign builds the per-axis section for a strategy at a sample rate.
type filterDesign func(sampleRate float64, p FilterParams) (biquadCoefficients, error)

// filterStrategies maps strategy names to their coefficient designs. The
// strategies share the calculator contract: raw triad in, named series out.
var filterStrategies = map[string]filterDesign{
	"lowpass":  designLowPass,
	"highpass": designHighPass,
	"bandpass": designBandPass,
}

// FilterStrategyNames lists the registered strategies, sorted.
func FilterStrategyNames() []string {
	names := make([]string, 0, len(filterStrategies))
	for name := range filterStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FilteredMetric applies the named filter strategy to each axis and emits
// the vector magnitude of the filtered triad as a MetricSeries.
func FilteredMetric(name string, raw *RawSampleSet, p FilterParams) (*MetricSeries, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	design, ok := filterStrategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter strategy %q", name)
	}
	coeffs, err := design(raw.SampleRate, p)
	if err != nil {
		return nil, fmt.Errorf("design %s filter: %w", name, err)
	}

	fx := (&biquadSection{biquadCoefficients: coeffs}).process(raw.X)
	fy := (&biquadSection{biquadCoefficients: coeffs}).process(raw.Y)
	fz := (&biquadSection{biquadCoefficients: coeffs}).process(raw.Z)

	values := make([]float64, len(fx))
	for i := range fx {
		values[i] = math.Sqrt(fx[i]*fx[i] + fy[i]*fy[i] + fz[i]*fz[i])
	}
	params := map[string]float64{"q": effectiveQ(p)}
	if p.Cutoff > 0 {
		params["cutoff_hz"] = p.Cutoff
	}
	if p.Low > 0 {
		params["low_hz"] = p.Low
	}
	if p.High > 0 {
		params["high_hz"] = p.High
	}
	return &MetricSeries{
		Name:       name,
		Values:     values,
		Timestamps: raw.Timestamps,
		Params:     params,
	}, nil
}

func effectiveQ(p FilterParams) float64 {
	if p.Q > 0 {
		return p.Q
	}
	return 1 / math.Sqrt2
}

func checkCutoff(cutoff, sampleRate float64) error {
	if cutoff <= 0 || cutoff >= sampleRate/2 {
		return fmt.Errorf("cutoff %v Hz outside (0, %v)", cutoff, sampleRate/2)
	}
	return nil
}

// The designs below follow the RBJ audio-EQ cookbook forms with a0
// normalized out.

func designLowPass(sampleRate float64, p FilterParams) (biquadCoefficients, error) {
	if err := checkCutoff(p.Cutoff, sampleRate); err != nil {
		return biquadCoefficients{}, err
	}
	w0 := 2 * math.Pi * p.Cutoff / sampleRate
	alpha := math.Sin(w0) / (2 * effectiveQ(p))
	cosw := math.Cos(w0)
	a0 := 1 + alpha
	return biquadCoefficients{
		B0: (1 - cosw) / 2 / a0,
		B1: (1 - cosw) / a0,
		B2: (1 - cosw) / 2 / a0,
		A1: -2 * cosw / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

func designHighPass(sampleRate float64, p FilterParams) (biquadCoefficients, error) {
	if err := checkCutoff(p.Cutoff, sampleRate); err != nil {
		return biquadCoefficients{}, err
	}
	w0 := 2 * math.Pi * p.Cutoff / sampleRate
	alpha := math.Sin(w0) / (2 * effectiveQ(p))
	cosw := math.Cos(w0)
	a0 := 1 + alpha
	return biquadCoefficients{
		B0: (1 + cosw) / 2 / a0,
		B1: -(1 + cosw) / a0,
		B2: (1 + cosw) / 2 / a0,
		A1: -2 * cosw / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

func designBandPass(sampleRate float64, p FilterParams) (biquadCoefficients, error) {
	if p.Low <= 0 || p.High <= p.Low || p.High >= sampleRate/2 {
		return biquadCoefficients{}, fmt.Errorf("band [%v, %v] Hz outside (0, %v)", p.Low, p.High, sampleRate/2)
	}
	center := math.Sqrt(p.Low * p.High)
	q := center / (p.High - p.Low)
	w0 := 2 * math.Pi * center / sampleRate
	alpha := math.Sin(w0) / (2 * q)
	cosw := math.Cos(w0)
	a0 := 1 + alpha
	return biquadCoefficients{
		B0: alpha / a0,
		B1: 0,
		B2: -alpha / a0,
		A1: -2 * cosw / a0,
		A2: (1 - alpha) / a0,
	}, nil
}
