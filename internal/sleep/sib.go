package sleep

import (
	"fmt"
	"math"

	"github.com/somnolab/actigraphy/internal/accel"
)

// SIBParams configures sustained-inactivity-bout detection.
type SIBParams struct {
	// EpochSeconds is the angle-epoch length.
	EpochSeconds float64
	// AngleThreshold is the posture-change threshold in degrees.
	AngleThreshold float64
	// MinBoutMinutes is the minimum change-free interval scored as sleep.
	MinBoutMinutes float64
	// MaxDegenerateChanges bounds the "never moved" rule: with fewer than
	// two posture changes, the whole series is sleep when the change count
	// is at or below this, wake otherwise.
	MaxDegenerateChanges int
}

// DefaultSIBParams returns the reference parameter set.
func DefaultSIBParams() SIBParams {
	return SIBParams{
		EpochSeconds:         5,
		AngleThreshold:       5,
		MinBoutMinutes:       5,
		MaxDegenerateChanges: 10,
	}
}

// SustainedInactivity scores raw samples by posture: inclination-angle
// epochs are scanned for posture changes and every change-free interval
// longer than the bout threshold is marked entirely as sleep.
func SustainedInactivity(raw *accel.RawSampleSet, p SIBParams) (*ScoreSeries, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	angles := accel.AngleValues(raw.X, raw.Y, raw.Z)
	means, _, err := accel.EpochMeans(angles, raw.Timestamps, raw.SampleRate, p.EpochSeconds)
	if err != nil {
		return nil, fmt.Errorf("angle epochs: %w", err)
	}
	return ScoreAngles(means, p)
}

// ScoreAngles runs bout detection over a prepared angle-epoch series.
// Undefined (NaN) angles never register as posture changes.
func ScoreAngles(angles []float64, p SIBParams) (*ScoreSeries, error) {
	if len(angles) == 0 {
		return nil, fmt.Errorf("sustained-inactivity: %w", ErrEmptyInput)
	}

	changes := postureChanges(angles, p.AngleThreshold)
	out := &ScoreSeries{
		Algorithm: "sustained-inactivity",
		Scores:    make([]Score, len(angles)),
		Params: map[string]float64{
			"epoch_seconds":    p.EpochSeconds,
			"angle_threshold":  p.AngleThreshold,
			"min_bout_minutes": p.MinBoutMinutes,
		},
	}

	if len(changes) < 2 {
		// Degenerate series: a subject who never moved is asleep; a noisy
		// series with changes but no usable pair is wake throughout.
		if len(changes) <= p.MaxDegenerateChanges {
			fill(out.Scores, Sleep)
		}
		return out, nil
	}

	// The series boundaries act as virtual posture changes so quiet runs
	// at the start or end of a recording can still qualify as bouts.
	bounds := make([]int, 0, len(changes)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, changes...)
	bounds = append(bounds, len(angles)-1)

	minBoutEpochs := int(math.Round(p.MinBoutMinutes * 60 / p.EpochSeconds))
	for j := 0; j+1 < len(bounds); j++ {
		gap := bounds[j+1] - bounds[j]
		if gap > minBoutEpochs {
			for i := bounds[j] + 1; i < bounds[j+1]; i++ {
				out.Scores[i] = Sleep
			}
		}
	}
	return out, nil
}

// postureChanges returns the indices where the absolute angle difference to
// the previous defined epoch exceeds the threshold.
func postureChanges(angles []float64, threshold float64) []int {
	var changes []int
	for i := 1; i < len(angles); i++ {
		if math.IsNaN(angles[i]) || math.IsNaN(angles[i-1]) {
			continue
		}
		if math.Abs(angles[i]-angles[i-1]) > threshold {
			changes = append(changes, i)
		}
	}
	return changes
}

func fill(scores []Score, v Score) {
	for i := range scores {
		scores[i] = v
	}
}
