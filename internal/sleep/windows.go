package sleep

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/monitoring"
)

// ErrNoSleepWindow is returned when the detector finds no block of sustained
// low posture variation long enough to qualify as a sleep window.
var ErrNoSleepWindow = errors.New("no sleep window detected")

// WindowParams configures the heuristic sleep-window detector.
type WindowParams struct {
	// AngleEpochSeconds is the z-angle epoch length.
	AngleEpochSeconds float64
	// MedianWindowMinutes is the rolling-median smoothing span.
	MedianWindowMinutes float64
	// ThresholdPercentile and ThresholdMultiplier derive the per-recording
	// change threshold from the distribution of angle differences.
	ThresholdPercentile float64
	ThresholdMultiplier float64
	// MinThreshold and MaxThreshold clamp the derived threshold (degrees).
	MinThreshold float64
	MaxThreshold float64
	// MinBlockMinutes is the shortest qualifying low-variation block.
	MinBlockMinutes float64
	// MergeGapMinutes joins neighbouring blocks separated by shorter gaps.
	MergeGapMinutes float64
	// SIB parameterises the inactivity scoring inside the chosen window.
	SIB SIBParams
}

// DefaultWindowParams returns the reference parameter set.
func DefaultWindowParams() WindowParams {
	return WindowParams{
		AngleEpochSeconds:   5,
		MedianWindowMinutes: 5,
		ThresholdPercentile: 10,
		ThresholdMultiplier: 15,
		MinThreshold:        0.1,
		MaxThreshold:        45,
		MinBlockMinutes:     30,
		MergeGapMinutes:     60,
		SIB:                 DefaultSIBParams(),
	}
}

// Window is a detected sleep period with its derived summary statistics.
// Indices refer to the detector's angle-epoch grid.
type Window struct {
	OnsetIndex  int
	OffsetIndex int
	OnsetTime   float64
	OffsetTime  float64

	DurationMinutes       float64
	TotalSleepMinutes     float64
	WakeAfterOnsetMinutes float64
	Efficiency            float64

	Method string
}

// DetectWindow finds the main sleep window in a recording: the longest block
// of sustained low z-angle variation, with short interruptions merged. The
// block's inactivity score supplies total sleep time, wake after onset and
// efficiency. This is a full detector layered above the bout scorer, not a
// wrapper around it.
func DetectWindow(raw *accel.RawSampleSet, p WindowParams) (*Window, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	angles := accel.AngleValues(raw.X, raw.Y, raw.Z)
	means, epochTimes, err := accel.EpochMeans(angles, raw.Timestamps, raw.SampleRate, p.AngleEpochSeconds)
	if err != nil {
		return nil, fmt.Errorf("angle epochs: %w", err)
	}

	medianSpan := oddSpan(p.MedianWindowMinutes * 60 / p.AngleEpochSeconds)
	smoothed := rollingMedian(means, medianSpan)

	diffs := make([]float64, len(smoothed))
	for i := 1; i < len(smoothed); i++ {
		diffs[i] = math.Abs(smoothed[i] - smoothed[i-1])
	}

	threshold := deriveThreshold(diffs[1:], p)
	monitoring.Debugf("sleep window threshold: %.3f deg", threshold)

	minBlock := int(math.Round(p.MinBlockMinutes * 60 / p.AngleEpochSeconds))
	mergeGap := int(math.Round(p.MergeGapMinutes * 60 / p.AngleEpochSeconds))

	blocks := lowVariationBlocks(diffs, threshold, minBlock)
	if len(blocks) == 0 {
		return nil, ErrNoSleepWindow
	}
	blocks = mergeBlocks(blocks, mergeGap)

	best := blocks[0]
	for _, b := range blocks[1:] {
		if b[1]-b[0] > best[1]-best[0] {
			best = b
		}
	}

	sib, err := ScoreAngles(means[best[0]:best[1]+1], p.SIB)
	if err != nil {
		return nil, fmt.Errorf("window inactivity score: %w", err)
	}

	duration := float64(best[1]-best[0]+1) * p.AngleEpochSeconds / 60
	tst := sib.SleepMinutes(p.AngleEpochSeconds)
	w := &Window{
		OnsetIndex:            best[0],
		OffsetIndex:           best[1],
		OnsetTime:             epochTimes[best[0]],
		OffsetTime:            epochTimes[best[1]],
		DurationMinutes:       duration,
		TotalSleepMinutes:     tst,
		WakeAfterOnsetMinutes: duration - tst,
		Efficiency:            100 * tst / duration,
		Method:                "heuristic-z-angle",
	}
	return w, nil
}

// deriveThreshold computes the data-driven posture-change threshold:
// the chosen percentile of the absolute angle differences times the
// multiplier, clamped into [MinThreshold, MaxThreshold].
func deriveThreshold(diffs []float64, p WindowParams) float64 {
	sorted := append([]float64(nil), diffs...)
	sort.Float64s(sorted)
	th := stat.Quantile(p.ThresholdPercentile/100, stat.Empirical, sorted, nil) * p.ThresholdMultiplier
	if th < p.MinThreshold {
		th = p.MinThreshold
	}
	if th > p.MaxThreshold {
		th = p.MaxThreshold
	}
	return th
}

// lowVariationBlocks returns [start, end] index pairs (inclusive) of runs
// where the angle difference stays below the threshold for at least
// minBlock epochs.
func lowVariationBlocks(diffs []float64, threshold float64, minBlock int) [][2]int {
	var blocks [][2]int
	start := -1
	for i := 1; i < len(diffs); i++ {
		below := diffs[i] < threshold && !math.IsNaN(diffs[i])
		if below && start < 0 {
			start = i
		}
		if (!below || i == len(diffs)-1) && start >= 0 {
			end := i - 1
			if below && i == len(diffs)-1 {
				end = i
			}
			if end-start+1 >= minBlock {
				blocks = append(blocks, [2]int{start, end})
			}
			start = -1
		}
	}
	return blocks
}

// mergeBlocks joins blocks separated by gaps shorter than mergeGap epochs.
func mergeBlocks(blocks [][2]int, mergeGap int) [][2]int {
	if len(blocks) == 0 {
		return blocks
	}
	merged := [][2]int{blocks[0]}
	for _, b := range blocks[1:] {
		last := &merged[len(merged)-1]
		if b[0]-last[1] < mergeGap {
			last[1] = b[1]
		} else {
			merged = append(merged, b)
		}
	}
	return merged
}

// rollingMedian applies a centred running median with a shrinking window at
// the edges. NaN values are excluded from each window.
func rollingMedian(values []float64, span int) []float64 {
	half := span / 2
	out := make([]float64, len(values))
	buf := make([]float64, 0, span)
	for i := range values {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(values) {
			hi = len(values) - 1
		}
		buf = buf[:0]
		for j := lo; j <= hi; j++ {
			if !math.IsNaN(values[j]) {
				buf = append(buf, values[j])
			}
		}
		if len(buf) == 0 {
			out[i] = math.NaN()
			continue
		}
		sort.Float64s(buf)
		mid := len(buf) / 2
		if len(buf)%2 == 1 {
			out[i] = buf[mid]
		} else {
			out[i] = (buf[mid-1] + buf[mid]) / 2
		}
	}
	return out
}

func oddSpan(v float64) int {
	span := int(math.Round(v))
	if span < 1 {
		span = 1
	}
	if span%2 == 0 {
		span++
	}
	return span
}
