package accel

import (
	"fmt"
	"math"
)

// Epochs downsamples raw samples into fixed-width summary windows. Each
// complete epoch sums the absolute value of every axis and, separately, the
// per-sample vector magnitude. The epoch timestamp is the first sample's
// timestamp in the window. A trailing partial epoch is truncated.
//
// Returns ErrNotEnoughSamples when the input does not cover one complete
// epoch; it never returns an empty summary.
func Epochs(raw *RawSampleSet, epochSeconds float64) (*EpochSummary, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if epochSeconds <= 0 {
		return nil, fmt.Errorf("invalid epoch length %v", epochSeconds)
	}
	perEpoch := int(math.Round(raw.SampleRate * epochSeconds))
	if perEpoch <= 0 {
		return nil, fmt.Errorf("invalid samples per epoch %d (rate %v, epoch %vs)", perEpoch, raw.SampleRate, epochSeconds)
	}
	n := raw.Len() / perEpoch
	if n == 0 {
		return nil, fmt.Errorf("%w: %d samples, need %d for one %vs epoch",
			ErrNotEnoughSamples, raw.Len(), perEpoch, epochSeconds)
	}

	out := &EpochSummary{
		X:            make([]float64, n),
		Y:            make([]float64, n),
		Z:            make([]float64, n),
		Magnitude:    make([]float64, n),
		Timestamps:   make([]float64, n),
		EpochSeconds: epochSeconds,
	}
	for e := 0; e < n; e++ {
		lo := e * perEpoch
		hi := lo + perEpoch
		out.Timestamps[e] = raw.Timestamps[lo]
		var sx, sy, sz, sm float64
		for i := lo; i < hi; i++ {
			sx += math.Abs(raw.X[i])
			sy += math.Abs(raw.Y[i])
			sz += math.Abs(raw.Z[i])
			sm += math.Sqrt(raw.X[i]*raw.X[i] + raw.Y[i]*raw.Y[i] + raw.Z[i]*raw.Z[i])
		}
		out.X[e], out.Y[e], out.Z[e], out.Magnitude[e] = sx, sy, sz, sm
	}
	return out, nil
}
