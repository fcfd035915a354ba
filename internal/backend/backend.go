// Package backend exposes the processing pipeline behind a capability-tagged
// interface. Implementations differ in which numeric kernels they use (and
// which build environments they run in); a registry picks the best available
// one at startup.
package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/somnolab/actigraphy/internal/accel"
	"github.com/somnolab/actigraphy/internal/circadian"
	"github.com/somnolab/actigraphy/internal/device"
	"github.com/somnolab/actigraphy/internal/nonwear"
	"github.com/somnolab/actigraphy/internal/sleep"
)

// ErrCapabilityUnsupported is returned when an operation is invoked on a
// backend that does not advertise the matching capability.
var ErrCapabilityUnsupported = errors.New("capability not supported by backend")

// Capability is a bitset of pipeline operations a backend implements.
type Capability uint32

const (
	CapParse Capability = 1 << iota
	CapCalibrate
	CapImpute
	CapEpoch
	CapENMO
	CapAngle
	CapFilter
	CapSleepScore
	CapSIB
	CapSleepWindow
	CapNonwear
	CapCircadian
	CapAgreement

	// CapAll is every capability the full pipeline defines.
	CapAll = CapParse | CapCalibrate | CapImpute | CapEpoch | CapENMO |
		CapAngle | CapFilter | CapSleepScore | CapSIB | CapSleepWindow |
		CapNonwear | CapCircadian | CapAgreement
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapParse, "parse"},
	{CapCalibrate, "calibrate"},
	{CapImpute, "impute"},
	{CapEpoch, "epoch"},
	{CapENMO, "enmo"},
	{CapAngle, "angle"},
	{CapFilter, "filter"},
	{CapSleepScore, "sleep-score"},
	{CapSIB, "sib"},
	{CapSleepWindow, "sleep-window"},
	{CapNonwear, "nonwear"},
	{CapCircadian, "circadian"},
	{CapAgreement, "agreement"},
}

// String lists the set bits by name.
func (c Capability) String() string {
	var names []string
	for _, cn := range capabilityNames {
		if c&cn.cap != 0 {
			names = append(names, cn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Has reports whether every bit of want is set.
func (c Capability) Has(want Capability) bool { return c&want == want }

// RhythmSummary bundles the circadian outputs one activity series yields.
type RhythmSummary struct {
	Windows               *circadian.ActiveWindows
	InterdailyStability   float64
	IntradailyVariability float64
}

// Backend is one complete implementation of the pipeline operations.
// Callers check Supports (or pick via Registry.WithCapability) before
// invoking an operation; unadvertised operations return
// ErrCapabilityUnsupported.
type Backend interface {
	Name() string
	// Available reports whether the backend can run in this process.
	Available() bool
	Capabilities() Capability
	Supports(c Capability) bool

	ReadRecording(path string, opts device.Options) (*accel.RawSampleSet, error)
	Calibrate(raw *accel.RawSampleSet, p accel.CalibrationParams) (accel.CalibrationResult, error)
	Impute(raw *accel.RawSampleSet, toleranceSeconds float64) (*accel.ImputationResult, error)
	Epochs(raw *accel.RawSampleSet, epochSeconds float64) (*accel.EpochSummary, error)
	ENMO(raw *accel.RawSampleSet) (*accel.MetricSeries, error)
	Angle(raw *accel.RawSampleSet) (*accel.MetricSeries, error)
	Filtered(name string, raw *accel.RawSampleSet, p accel.FilterParams) (*accel.MetricSeries, error)
	ScoreSleep(algorithm string, counts []float64) (*sleep.ScoreSeries, error)
	SustainedInactivity(raw *accel.RawSampleSet, p sleep.SIBParams) (*sleep.ScoreSeries, error)
	SleepWindow(raw *accel.RawSampleSet, p sleep.WindowParams) (*sleep.Window, error)
	Nonwear(algorithm string, raw *accel.RawSampleSet, epochs *accel.EpochSummary) (*nonwear.Result, error)
	Rhythm(activity []float64, p circadian.ActiveWindowsParams, epochsPerDay int) (*RhythmSummary, error)
	Agreement(a, b []bool) (*circadian.Agreement, error)
}

// engine is the shared full-capability implementation. Variants differ only
// in the sphere solver driving autocalibration.
type engine struct {
	name   string
	solver accel.SphereSolver
}

func newEngine(name string, solver accel.SphereSolver) *engine {
	return &engine{name: name, solver: solver}
}

func (e *engine) Name() string               { return e.name }
func (e *engine) Available() bool            { return true }
func (e *engine) Capabilities() Capability   { return CapAll }
func (e *engine) Supports(c Capability) bool { return CapAll.Has(c) }

func (e *engine) ReadRecording(path string, opts device.Options) (*accel.RawSampleSet, error) {
	return device.ReadFile(path, opts)
}

func (e *engine) Calibrate(raw *accel.RawSampleSet, p accel.CalibrationParams) (accel.CalibrationResult, error) {
	if err := raw.Validate(); err != nil {
		return accel.CalibrationResult{}, err
	}
	return accel.Calibrate(raw, p, e.solver), nil
}

func (e *engine) Impute(raw *accel.RawSampleSet, toleranceSeconds float64) (*accel.ImputationResult, error) {
	return accel.Impute(raw, toleranceSeconds)
}

func (e *engine) Epochs(raw *accel.RawSampleSet, epochSeconds float64) (*accel.EpochSummary, error) {
	return accel.Epochs(raw, epochSeconds)
}

func (e *engine) ENMO(raw *accel.RawSampleSet) (*accel.MetricSeries, error) {
	return accel.ENMO(raw)
}

func (e *engine) Angle(raw *accel.RawSampleSet) (*accel.MetricSeries, error) {
	return accel.Angle(raw)
}

func (e *engine) Filtered(name string, raw *accel.RawSampleSet, p accel.FilterParams) (*accel.MetricSeries, error) {
	return accel.FilteredMetric(name, raw, p)
}

func (e *engine) ScoreSleep(algorithm string, counts []float64) (*sleep.ScoreSeries, error) {
	return sleep.ScoreCounts(algorithm, counts)
}

func (e *engine) SustainedInactivity(raw *accel.RawSampleSet, p sleep.SIBParams) (*sleep.ScoreSeries, error) {
	return sleep.SustainedInactivity(raw, p)
}

func (e *engine) SleepWindow(raw *accel.RawSampleSet, p sleep.WindowParams) (*sleep.Window, error) {
	return sleep.DetectWindow(raw, p)
}

func (e *engine) Nonwear(algorithm string, raw *accel.RawSampleSet, epochs *accel.EpochSummary) (*nonwear.Result, error) {
	switch algorithm {
	case "", "stationary-2013":
		return nonwear.DetectStationary(raw, nonwear.DefaultStationaryParams())
	case "count-90min":
		if epochs == nil {
			return nil, fmt.Errorf("nonwear %q needs epoch counts", algorithm)
		}
		return nonwear.DetectCounts(epochs.Magnitude, epochs.EpochSeconds, nonwear.DefaultCountParams())
	case "capsense":
		if raw == nil || raw.CapSense == nil {
			return nil, fmt.Errorf("nonwear %q needs a capsense channel", algorithm)
		}
		// CapSense records arrive once a minute on supported hardware.
		return nonwear.DetectCapSense(raw.CapSense, 60, nonwear.DefaultCapSenseParams())
	}
	return nil, fmt.Errorf("unknown nonwear algorithm %q", algorithm)
}

func (e *engine) Rhythm(activity []float64, p circadian.ActiveWindowsParams, epochsPerDay int) (*RhythmSummary, error) {
	aw, err := circadian.MostLeastActive(activity, p)
	if err != nil {
		return nil, err
	}
	is, err := circadian.InterdailyStability(activity, epochsPerDay)
	if err != nil {
		return nil, err
	}
	iv, err := circadian.IntradailyVariability(activity)
	if err != nil {
		return nil, err
	}
	return &RhythmSummary{Windows: aw, InterdailyStability: is, IntradailyVariability: iv}, nil
}

func (e *engine) Agreement(a, b []bool) (*circadian.Agreement, error) {
	return circadian.CohenKappa(a, b)
}
