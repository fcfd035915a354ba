// Package accel implements the raw-signal stages of the actigraphy pipeline:
// autocalibration, gap imputation, epoch aggregation and the per-sample
// movement metrics. All records are value objects produced once by a stage
// and read downstream; nothing here mutates its inputs.
package accel

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotEnoughSamples is returned when an input is too short to produce a
// single complete output unit (for example, one epoch).
var ErrNotEnoughSamples = errors.New("not enough samples")

// DeviceInfo is the metadata record decoded from a container's info stream.
type DeviceInfo struct {
	Serial         string
	DeviceType     string
	Firmware       string
	SampleRate     float64
	StartTime      time.Time
	TimezoneOffset time.Duration
	// AccelScale is the raw-count-per-g divisor used to decode samples.
	AccelScale float64
}

// RawSampleSet holds decoded tri-axial samples in g with parallel unix
// timestamps in seconds. Light, Battery and CapSense are optional auxiliary
// channels; nil when the container carried none or decoding skipped them.
type RawSampleSet struct {
	X, Y, Z    []float64
	Timestamps []float64
	SampleRate float64
	Device     *DeviceInfo

	Light    []float64
	Battery  []float64
	CapSense []bool
}

// Len returns the number of samples.
func (r *RawSampleSet) Len() int { return len(r.X) }

// Validate checks the parallel-array invariant.
func (r *RawSampleSet) Validate() error {
	n := len(r.X)
	if len(r.Y) != n || len(r.Z) != n || len(r.Timestamps) != n {
		return fmt.Errorf("axis/timestamp length mismatch: x=%d y=%d z=%d t=%d",
			len(r.X), len(r.Y), len(r.Z), len(r.Timestamps))
	}
	if r.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %v", r.SampleRate)
	}
	return nil
}

// CalibrationResult reports the outcome of the sphere-fitting autocalibration.
// When Success is false, Scale and Offset hold the identity transform.
type CalibrationResult struct {
	Success     bool
	Scale       [3]float64
	Offset      [3]float64
	ErrorBefore float64
	ErrorAfter  float64
	Points      int
	Message     string
}

// ImputationResult holds the gap-filled arrays plus gap statistics. When
// GapCount is zero the arrays are exactly the input arrays.
type ImputationResult struct {
	X, Y, Z      []float64
	Timestamps   []float64
	GapCount     int
	SamplesAdded int
	GapSeconds   float64
}

// EpochSummary holds per-epoch aggregate counts for each axis and for the
// per-sample vector magnitude, with the first sample's timestamp per epoch.
type EpochSummary struct {
	X, Y, Z      []float64
	Magnitude    []float64
	Timestamps   []float64
	EpochSeconds float64
}

// Len returns the number of complete epochs.
func (e *EpochSummary) Len() int { return len(e.Timestamps) }

// Axis returns the named count series ("x", "y", "z" or "magnitude").
func (e *EpochSummary) Axis(name string) ([]float64, error) {
	switch name {
	case "x":
		return e.X, nil
	case "y":
		return e.Y, nil
	case "z":
		return e.Z, nil
	case "magnitude":
		return e.Magnitude, nil
	}
	return nil, fmt.Errorf("unknown axis %q", name)
}

// MetricSeries is a named per-sample or per-epoch numeric sequence.
// Timestamps may be nil for purely elementwise metrics.
type MetricSeries struct {
	Name       string
	Values     []float64
	Timestamps []float64
	Params     map[string]float64
}
