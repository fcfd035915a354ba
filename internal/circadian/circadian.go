// Package circadian computes rest-activity rhythm summaries from epoch-level
// activity series: the most and least active daily windows, interdaily
// stability, and intradaily variability.
package circadian

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrShortSeries is returned when an activity series cannot cover the
// requested analysis window.
var ErrShortSeries = errors.New("activity series too short")

// ActiveWindowsParams configures MostLeastActive.
type ActiveWindowsParams struct {
	EpochSeconds float64
	// MostHours and LeastHours are the rolling window lengths for the
	// most and least active stretches (M10/L5 uses 10 and 5).
	MostHours  float64
	LeastHours float64
}

// DefaultActiveWindowsParams returns the conventional M10/L5 lengths on
// 60-second epochs.
func DefaultActiveWindowsParams() ActiveWindowsParams {
	return ActiveWindowsParams{EpochSeconds: 60, MostHours: 10, LeastHours: 5}
}

// ActiveWindows summarizes the most and least active windows of a series.
type ActiveWindows struct {
	// MostMean and LeastMean are the mean activity over the winning
	// windows; the Start fields are epoch indices.
	MostMean   float64
	MostStart  int
	LeastMean  float64
	LeastStart int
	// RelativeAmplitude is (MostMean-LeastMean)/(MostMean+LeastMean),
	// zero when both means are zero.
	RelativeAmplitude float64
}

// MostLeastActive slides both window lengths over the activity series and
// returns the window with the highest mean and the one with the lowest.
func MostLeastActive(activity []float64, p ActiveWindowsParams) (*ActiveWindows, error) {
	mostLen := int(math.Round(p.MostHours * 3600 / p.EpochSeconds))
	leastLen := int(math.Round(p.LeastHours * 3600 / p.EpochSeconds))
	if mostLen <= 0 || leastLen <= 0 {
		return nil, fmt.Errorf("window lengths must be positive (most=%v h, least=%v h)", p.MostHours, p.LeastHours)
	}
	longest := mostLen
	if leastLen > longest {
		longest = leastLen
	}
	if len(activity) < longest {
		return nil, fmt.Errorf("%w: %d epochs, need %d", ErrShortSeries, len(activity), longest)
	}

	mostMean, mostStart := extremeWindow(activity, mostLen, true)
	leastMean, leastStart := extremeWindow(activity, leastLen, false)

	out := &ActiveWindows{
		MostMean:   mostMean,
		MostStart:  mostStart,
		LeastMean:  leastMean,
		LeastStart: leastStart,
	}
	if sum := mostMean + leastMean; sum > 0 {
		out.RelativeAmplitude = (mostMean - leastMean) / sum
	}
	return out, nil
}

// extremeWindow finds the rolling window of the given length with the
// highest (wantMax) or lowest mean, using a running sum.
func extremeWindow(v []float64, length int, wantMax bool) (mean float64, start int) {
	sum := floats.Sum(v[:length])
	best := sum
	for i := length; i < len(v); i++ {
		sum += v[i] - v[i-length]
		if (wantMax && sum > best) || (!wantMax && sum < best) {
			best = sum
			start = i - length + 1
		}
	}
	return best / float64(length), start
}

// InterdailyStability measures how well the activity pattern repeats from
// day to day: the variance of the mean 24-hour profile over the total
// variance. Values range from 0 (noise) to 1 (perfectly repeating).
// epochsPerDay is the number of epochs one day spans.
func InterdailyStability(activity []float64, epochsPerDay int) (float64, error) {
	if epochsPerDay <= 0 {
		return 0, fmt.Errorf("epochsPerDay must be positive, got %d", epochsPerDay)
	}
	days := len(activity) / epochsPerDay
	if days < 2 {
		return 0, fmt.Errorf("%w: need at least 2 full days, got %d epochs", ErrShortSeries, len(activity))
	}
	n := days * epochsPerDay
	v := activity[:n]

	grand := floats.Sum(v) / float64(n)

	// Hourly profile averaged across days.
	profile := make([]float64, epochsPerDay)
	for i, s := range v {
		profile[i%epochsPerDay] += s
	}
	profileVar := 0.0
	for i := range profile {
		profile[i] /= float64(days)
		d := profile[i] - grand
		profileVar += d * d
	}
	profileVar /= float64(epochsPerDay)

	totalVar := 0.0
	for _, s := range v {
		d := s - grand
		totalVar += d * d
	}
	totalVar /= float64(n)
	if totalVar == 0 {
		return 1, nil
	}
	return profileVar / totalVar, nil
}

// IntradailyVariability measures rhythm fragmentation: the mean squared
// hour-to-hour difference over the total variance. Near 0 for a smooth
// sinusoidal rhythm, around 2 for white noise.
func IntradailyVariability(activity []float64) (float64, error) {
	if len(activity) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 epochs, got %d", ErrShortSeries, len(activity))
	}
	n := float64(len(activity))
	mean := floats.Sum(activity) / n

	diffSq := 0.0
	for i := 1; i < len(activity); i++ {
		d := activity[i] - activity[i-1]
		diffSq += d * d
	}
	diffSq /= n - 1

	totalVar := 0.0
	for _, s := range activity {
		d := s - mean
		totalVar += d * d
	}
	totalVar /= n
	if totalVar == 0 {
		return 0, nil
	}
	return diffSq / totalVar, nil
}
