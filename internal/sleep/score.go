// Package sleep implements the sleep/wake scoring algorithms: the
// epoch-count family (Sadeh, Cole–Kripke) and the raw-sample posture
// algorithms (sustained-inactivity bouts, heuristic sleep-window detection).
package sleep

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Score is a per-epoch sleep/wake classification.
type Score uint8

// Classification values. There is no third state: algorithms either emit a
// full series or fail explicitly.
const (
	Wake  Score = 0
	Sleep Score = 1
)

// ErrEmptyInput is returned when a scorer receives zero epochs. Scorers
// never return an empty series.
var ErrEmptyInput = errors.New("no epochs to score")

// ScoreSeries is one binary value per input epoch plus the parameters used,
// so a result can be reproduced.
type ScoreSeries struct {
	Algorithm  string
	Scores     []Score
	Confidence []float64
	Params     map[string]float64
}

// SleepMinutes returns the total scored sleep time given the epoch length.
func (s *ScoreSeries) SleepMinutes(epochSeconds float64) float64 {
	n := 0
	for _, v := range s.Scores {
		if v == Sleep {
			n++
		}
	}
	return float64(n) * epochSeconds / 60
}

// linearSet is a published sliding-window coefficient set: the weighted
// combination of neighbouring epoch counts is compared against a threshold.
type linearSet struct {
	before, after int
	weights       []float64 // len == before+1+after
	inputScale    float64   // applied to counts before weighting
	outputScale   float64   // applied to the weighted sum
	threshold     float64   // sleep when score < threshold
}

// linearSets holds the named variants. Device-specific re-scalings slot in
// here without changing the call contract.
var linearSets = map[string]linearSet{
	// Cole et al. 1992, 1-minute epochs.
	"cole-kripke": {
		before:      4,
		after:       2,
		weights:     []float64{106, 54, 58, 76, 230, 74, 67},
		inputScale:  1,
		outputScale: 0.001,
		threshold:   1,
	},
	// Same weights with the vendor divide-by-100 count re-scaling.
	"cole-kripke-rescaled": {
		before:      4,
		after:       2,
		weights:     []float64{106, 54, 58, 76, 230, 74, 67},
		inputScale:  0.01,
		outputScale: 0.001,
		threshold:   1,
	},
}

// Algorithms lists the selectable epoch-count scorers, sorted by name.
func Algorithms() []string {
	names := make([]string, 0, len(linearSets)+1)
	for name := range linearSets {
		names = append(names, name)
	}
	names = append(names, "sadeh")
	sort.Strings(names)
	return names
}

// ScoreCounts classifies one activity count per epoch into sleep/wake using
// the named algorithm. The output length always equals the input length.
func ScoreCounts(algorithm string, counts []float64) (*ScoreSeries, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("%s: %w", algorithm, ErrEmptyInput)
	}
	if algorithm == "sadeh" {
		return scoreSadeh(counts), nil
	}
	set, ok := linearSets[algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown sleep algorithm %q", algorithm)
	}
	return scoreLinear(algorithm, set, counts), nil
}

// scoreLinear slides the coefficient window over the counts; epochs past
// either edge contribute zero.
func scoreLinear(name string, set linearSet, counts []float64) *ScoreSeries {
	out := &ScoreSeries{
		Algorithm:  name,
		Scores:     make([]Score, len(counts)),
		Confidence: make([]float64, len(counts)),
		Params: map[string]float64{
			"threshold":    set.threshold,
			"input_scale":  set.inputScale,
			"output_scale": set.outputScale,
		},
	}
	for i := range counts {
		sum := 0.0
		for k, w := range set.weights {
			j := i - set.before + k
			if j < 0 || j >= len(counts) {
				continue
			}
			sum += w * counts[j] * set.inputScale
		}
		d := sum * set.outputScale
		out.Confidence[i] = d
		if d < set.threshold {
			out.Scores[i] = Sleep
		}
	}
	return out
}

// scoreSadeh implements Sadeh et al. 1994 on 1-minute epochs:
//
//	PS = 7.601 − 0.065·MW5 − 1.08·NAT − 0.056·SD6 − 0.703·LG
//
// where MW5 is the mean count over the 11-epoch window centred on the
// current epoch, NAT the number of window epochs with counts in [50, 100),
// SD6 the standard deviation of the trailing 6 epochs and LG the natural
// log of the current count plus one. Sleep when PS ≥ 0.
func scoreSadeh(counts []float64) *ScoreSeries {
	out := &ScoreSeries{
		Algorithm:  "sadeh",
		Scores:     make([]Score, len(counts)),
		Confidence: make([]float64, len(counts)),
		Params:     map[string]float64{"threshold": 0},
	}
	for i := range counts {
		lo := i - 5
		if lo < 0 {
			lo = 0
		}
		hi := i + 5
		if hi >= len(counts) {
			hi = len(counts) - 1
		}
		mean := 0.0
		nat := 0.0
		for j := lo; j <= hi; j++ {
			mean += counts[j]
			if counts[j] >= 50 && counts[j] < 100 {
				nat++
			}
		}
		mean /= float64(hi - lo + 1)

		sd := trailingStdDev(counts, i, 6)
		lg := math.Log(counts[i] + 1)

		ps := 7.601 - 0.065*mean - 1.08*nat - 0.056*sd - 0.703*lg
		out.Confidence[i] = ps
		if ps >= 0 {
			out.Scores[i] = Sleep
		}
	}
	return out
}

// trailingStdDev is the sample standard deviation of the up-to-n epochs
// ending at index i inclusive. Returns 0 when fewer than two are available.
func trailingStdDev(counts []float64, i, n int) float64 {
	lo := i - n + 1
	if lo < 0 {
		lo = 0
	}
	window := counts[lo : i+1]
	if len(window) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(len(window))
	ss := 0.0
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(window)-1))
}
