package accel

import (
	"fmt"
	"math"

	"github.com/somnolab/actigraphy/internal/units"
)

// ENMOValues computes the Euclidean Norm Minus One metric elementwise:
// max(0, sqrt(x²+y²+z²) − 1). Output is in g.
func ENMOValues(x, y, z []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		v := math.Sqrt(x[i]*x[i]+y[i]*y[i]+z[i]*z[i]) - 1
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out
}

// AngleValues computes the inclination angle in degrees elementwise:
// atan2(z, sqrt(x²+y²)) · 180/π.
func AngleValues(x, y, z []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.Atan2(z[i], math.Sqrt(x[i]*x[i]+y[i]*y[i])) * 180 / math.Pi
	}
	return out
}

// ENMO wraps ENMOValues as a named MetricSeries over a sample set.
func ENMO(raw *RawSampleSet) (*MetricSeries, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return &MetricSeries{
		Name:       "enmo",
		Values:     ENMOValues(raw.X, raw.Y, raw.Z),
		Timestamps: raw.Timestamps,
	}, nil
}

// Angle wraps AngleValues as a named MetricSeries over a sample set.
func Angle(raw *RawSampleSet) (*MetricSeries, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	return &MetricSeries{
		Name:       "angle",
		Values:     AngleValues(raw.X, raw.Y, raw.Z),
		Timestamps: raw.Timestamps,
	}, nil
}

// InUnits returns a copy of an acceleration-valued series converted from g
// to the target unit ("g", "mg" or "ms2").
func (m *MetricSeries) InUnits(target string) (*MetricSeries, error) {
	if !units.IsValid(target) {
		return nil, fmt.Errorf("unknown unit %q, valid units: %s", target, units.GetValidUnitsString())
	}
	out := &MetricSeries{
		Name:       m.Name + "_" + target,
		Values:     make([]float64, len(m.Values)),
		Timestamps: m.Timestamps,
		Params:     m.Params,
	}
	for i, v := range m.Values {
		out.Values[i] = units.ConvertAcceleration(v, target)
	}
	return out, nil
}

// EpochMeans averages a per-sample metric into epochs of the given length,
// ignoring NaN values inside a window. Windows that are entirely NaN emit
// NaN. Used by the posture algorithms, which score 5-second angle epochs.
func EpochMeans(values, timestamps []float64, sampleRate, epochSeconds float64) (means, epochTimes []float64, err error) {
	perEpoch := int(math.Round(sampleRate * epochSeconds))
	if perEpoch <= 0 {
		return nil, nil, fmt.Errorf("invalid samples per epoch (rate %v, epoch %vs)", sampleRate, epochSeconds)
	}
	n := len(values) / perEpoch
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: %d values, need %d for one %vs epoch",
			ErrNotEnoughSamples, len(values), perEpoch, epochSeconds)
	}
	means = make([]float64, n)
	epochTimes = make([]float64, n)
	for e := 0; e < n; e++ {
		lo := e * perEpoch
		epochTimes[e] = timestamps[lo]
		sum, count := 0.0, 0
		for i := lo; i < lo+perEpoch; i++ {
			if math.IsNaN(values[i]) {
				continue
			}
			sum += values[i]
			count++
		}
		if count == 0 {
			means[e] = math.NaN()
		} else {
			means[e] = sum / float64(count)
		}
	}
	return means, epochTimes, nil
}
