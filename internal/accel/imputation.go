package accel

import (
	"math"

	"github.com/somnolab/actigraphy/internal/monitoring"
)

// DefaultGapTolerance is the slack (seconds) beyond one sample period before
// a timestamp delta counts as a gap.
const DefaultGapTolerance = 1.0

// Impute detects recording gaps and fills them by row replication: the last
// known sample's x/y/z are repeated on synthesized, evenly spaced timestamps.
// Replication (rather than interpolation or zero-fill) is the contract: it
// reproduces the reference tool's gap filling so downstream nonwear and sleep
// scores stay numerically comparable.
//
// A gap is any consecutive-timestamp delta exceeding one sample period by
// more than toleranceSeconds. With zero gaps the returned arrays are exactly
// the input arrays.
func Impute(raw *RawSampleSet, toleranceSeconds float64) (*ImputationResult, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	period := 1.0 / raw.SampleRate

	gapCount := 0
	added := 0
	gapSeconds := 0.0
	for i := 1; i < raw.Len(); i++ {
		delta := raw.Timestamps[i] - raw.Timestamps[i-1]
		if delta > period+toleranceSeconds {
			gapCount++
			added += missingSamples(delta, period)
			gapSeconds += delta - period
		}
	}

	if gapCount == 0 {
		return &ImputationResult{
			X: raw.X, Y: raw.Y, Z: raw.Z, Timestamps: raw.Timestamps,
		}, nil
	}

	n := raw.Len() + added
	out := &ImputationResult{
		X:            make([]float64, 0, n),
		Y:            make([]float64, 0, n),
		Z:            make([]float64, 0, n),
		Timestamps:   make([]float64, 0, n),
		GapCount:     gapCount,
		SamplesAdded: added,
		GapSeconds:   gapSeconds,
	}

	out.X = append(out.X, raw.X[0])
	out.Y = append(out.Y, raw.Y[0])
	out.Z = append(out.Z, raw.Z[0])
	out.Timestamps = append(out.Timestamps, raw.Timestamps[0])

	for i := 1; i < raw.Len(); i++ {
		delta := raw.Timestamps[i] - raw.Timestamps[i-1]
		if delta > period+toleranceSeconds {
			missing := missingSamples(delta, period)
			for k := 1; k <= missing; k++ {
				out.X = append(out.X, raw.X[i-1])
				out.Y = append(out.Y, raw.Y[i-1])
				out.Z = append(out.Z, raw.Z[i-1])
				out.Timestamps = append(out.Timestamps, raw.Timestamps[i-1]+float64(k)*period)
			}
		}
		out.X = append(out.X, raw.X[i])
		out.Y = append(out.Y, raw.Y[i])
		out.Z = append(out.Z, raw.Z[i])
		out.Timestamps = append(out.Timestamps, raw.Timestamps[i])
	}

	monitoring.Debugf("imputation: %d gaps, %d samples added, %.1fs total", gapCount, added, gapSeconds)
	return out, nil
}

// missingSamples is the number of replicated rows needed to bridge a gap of
// the given width at the given sample period.
func missingSamples(delta, period float64) int {
	n := int(math.Round(delta/period)) - 1
	if n < 0 {
		return 0
	}
	return n
}

// Filled returns a sample set with the imputed arrays, carrying over the
// source's rate, metadata and auxiliary channels.
func (r *ImputationResult) Filled(src *RawSampleSet) *RawSampleSet {
	out := *src
	out.X, out.Y, out.Z, out.Timestamps = r.X, r.Y, r.Z, r.Timestamps
	return &out
}
