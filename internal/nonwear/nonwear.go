// Package nonwear detects periods during which the device was not worn.
// Variants differ in the signal they inspect but share one output contract,
// so the scoring layer never cares which variant produced a vector.
package nonwear

import (
	"errors"
	"fmt"
	"math"

	"github.com/somnolab/actigraphy/internal/accel"
)

// ErrNoData is returned when a detector receives an input too short to
// produce a single output unit.
var ErrNoData = errors.New("not enough data for nonwear detection")

// Result is the shared detector output: one boolean per input unit (true =
// nonwear) plus the contiguous nonwear index ranges over those units.
type Result struct {
	Nonwear   []bool
	Ranges    [][2]int
	Algorithm string
	// UnitSeconds is the duration one boolean covers.
	UnitSeconds float64
	Params      map[string]float64
}

// NonwearMinutes is the total flagged time.
func (r *Result) NonwearMinutes() float64 {
	n := 0
	for _, v := range r.Nonwear {
		if v {
			n++
		}
	}
	return float64(n) * r.UnitSeconds / 60
}

// StationaryParams configures the raw-signal variance/range detector.
// The defaults are the published "stationary-2013" parameter set.
type StationaryParams struct {
	WindowMinutes  float64
	StepMinutes    float64
	SDThreshold    float64 // g
	RangeThreshold float64 // g
	MinAxes        int
}

// DefaultStationaryParams returns the "stationary-2013" set.
func DefaultStationaryParams() StationaryParams {
	return StationaryParams{
		WindowMinutes:  60,
		StepMinutes:    15,
		SDThreshold:    0.013,
		RangeThreshold: 0.050,
		MinAxes:        2,
	}
}

// DetectStationary flags step-sized blocks whose surrounding window shows no
// movement: at least MinAxes axes with both a standard deviation under
// SDThreshold and a value range under RangeThreshold. One boolean is emitted
// per step block.
func DetectStationary(raw *accel.RawSampleSet, p StationaryParams) (*Result, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	step := int(math.Round(raw.SampleRate * p.StepMinutes * 60))
	window := int(math.Round(raw.SampleRate * p.WindowMinutes * 60))
	if step <= 0 || window <= 0 || raw.Len() < step {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrNoData, raw.Len(), step)
	}

	units := raw.Len() / step
	res := &Result{
		Nonwear:     make([]bool, units),
		Algorithm:   "stationary-2013",
		UnitSeconds: p.StepMinutes * 60,
		Params: map[string]float64{
			"window_minutes":  p.WindowMinutes,
			"step_minutes":    p.StepMinutes,
			"sd_threshold":    p.SDThreshold,
			"range_threshold": p.RangeThreshold,
			"min_axes":        float64(p.MinAxes),
		},
	}

	axes := [3][]float64{raw.X, raw.Y, raw.Z}
	for u := 0; u < units; u++ {
		// Center the inspection window on the step block, clamped to the
		// recording bounds.
		mid := u*step + step/2
		lo := mid - window/2
		if lo < 0 {
			lo = 0
		}
		hi := lo + window
		if hi > raw.Len() {
			hi = raw.Len()
			lo = hi - window
			if lo < 0 {
				lo = 0
			}
		}

		still := 0
		for _, axis := range axes {
			sd, rng := sdAndRange(axis[lo:hi])
			if sd < p.SDThreshold || rng < p.RangeThreshold {
				still++
			}
		}
		res.Nonwear[u] = still >= p.MinAxes
	}
	res.Ranges = contiguousRanges(res.Nonwear)
	return res, nil
}

// CountParams configures the epoch-count detector. The defaults are the
// "count-90min" parameter set.
type CountParams struct {
	MinZeroMinutes float64
	// SpikeToleranceMinutes allows this many isolated nonzero epochs
	// inside a zero run without breaking it.
	SpikeToleranceMinutes float64
}

// DefaultCountParams returns the "count-90min" set.
func DefaultCountParams() CountParams {
	return CountParams{MinZeroMinutes: 90, SpikeToleranceMinutes: 2}
}

// DetectCounts flags epochs inside zero-count runs at least MinZeroMinutes
// long, tolerating up to SpikeToleranceMinutes of isolated activity inside
// a run. One boolean is emitted per input epoch.
func DetectCounts(counts []float64, epochSeconds float64, p CountParams) (*Result, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("count detector: %w", ErrNoData)
	}
	res := &Result{
		Nonwear:     make([]bool, len(counts)),
		Algorithm:   "count-90min",
		UnitSeconds: epochSeconds,
		Params: map[string]float64{
			"min_zero_minutes":        p.MinZeroMinutes,
			"spike_tolerance_minutes": p.SpikeToleranceMinutes,
		},
	}

	minRun := int(math.Round(p.MinZeroMinutes * 60 / epochSeconds))
	spikeBudget := int(math.Round(p.SpikeToleranceMinutes * 60 / epochSeconds))

	i := 0
	for i < len(counts) {
		if counts[i] != 0 {
			i++
			continue
		}
		// Extend a zero run, spending the spike budget on isolated
		// nonzero epochs that are immediately followed by more zeros.
		start := i
		spikes := 0
		j := i
		for j < len(counts) {
			if counts[j] == 0 {
				j++
				continue
			}
			if spikes < spikeBudget && j+1 < len(counts) && counts[j+1] == 0 {
				spikes++
				j++
				continue
			}
			break
		}
		if j-start >= minRun {
			for k := start; k < j; k++ {
				res.Nonwear[k] = true
			}
		}
		i = j + 1
	}
	res.Ranges = contiguousRanges(res.Nonwear)
	return res, nil
}

// CapSenseParams configures the hardware capacitive-touch detector.
type CapSenseParams struct {
	// MinOffMinutes is the shortest untouched run reported as nonwear.
	MinOffMinutes float64
}

// DefaultCapSenseParams returns the capsense parameter set.
func DefaultCapSenseParams() CapSenseParams {
	return CapSenseParams{MinOffMinutes: 10}
}

// DetectCapSense flags untouched runs of the capacitive-touch channel at
// least MinOffMinutes long. One boolean is emitted per capsense sample;
// sampleInterval gives each sample's duration in seconds.
func DetectCapSense(touched []bool, sampleInterval float64, p CapSenseParams) (*Result, error) {
	if len(touched) == 0 {
		return nil, fmt.Errorf("capsense detector: %w", ErrNoData)
	}
	res := &Result{
		Nonwear:     make([]bool, len(touched)),
		Algorithm:   "capsense",
		UnitSeconds: sampleInterval,
		Params:      map[string]float64{"min_off_minutes": p.MinOffMinutes},
	}
	minRun := int(math.Round(p.MinOffMinutes * 60 / sampleInterval))

	i := 0
	for i < len(touched) {
		if touched[i] {
			i++
			continue
		}
		j := i
		for j < len(touched) && !touched[j] {
			j++
		}
		if j-i >= minRun {
			for k := i; k < j; k++ {
				res.Nonwear[k] = true
			}
		}
		i = j
	}
	res.Ranges = contiguousRanges(res.Nonwear)
	return res, nil
}

// sdAndRange computes the sample standard deviation and value range.
func sdAndRange(v []float64) (sd, rng float64) {
	if len(v) < 2 {
		return 0, 0
	}
	mean := 0.0
	lo, hi := v[0], v[0]
	for _, s := range v {
		mean += s
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	mean /= float64(len(v))
	ss := 0.0
	for _, s := range v {
		d := s - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(v)-1)), hi - lo
}

// contiguousRanges converts a boolean vector into inclusive [start, end]
// index pairs over the true runs.
func contiguousRanges(v []bool) [][2]int {
	var ranges [][2]int
	start := -1
	for i, b := range v {
		if b && start < 0 {
			start = i
		}
		if !b && start >= 0 {
			ranges = append(ranges, [2]int{start, i - 1})
			start = -1
		}
	}
	if start >= 0 {
		ranges = append(ranges, [2]int{start, len(v) - 1})
	}
	return ranges
}
