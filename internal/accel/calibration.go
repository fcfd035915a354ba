package accel

import (
	"fmt"
	"math"
	"strings"

	"github.com/somnolab/actigraphy/internal/monitoring"
)

// Diagnostic messages for expected, data-dependent calibration failures.
// These are returned in CalibrationResult.Message, never as errors.
const (
	MsgNotEnoughStationary = "not enough stationary points"
	MsgSphereNotCovered    = "not enough points on all sides of sphere"
)

// CalibrationParams configures the stationary-window selection and the
// sphere-coverage acceptance criteria.
type CalibrationParams struct {
	// WindowSeconds is the feature-window length.
	WindowSeconds float64
	// StdThreshold is the per-axis standard deviation ceiling (g) below
	// which a window counts as stationary.
	StdThreshold float64
	// MeanClip rejects windows whose axis means exceed this magnitude (g).
	MeanClip float64
	// SphereCriterion is the minimum excursion (g) required on both sides
	// of an axis for that axis to count as covered.
	SphereCriterion float64
	// MinPoints is the minimum number of stationary windows required.
	MinPoints int
	// MinSphereAxes is the number of axes that must be covered on both sides.
	MinSphereAxes int
	// MaxIterations bounds the least-squares solver.
	MaxIterations int
}

// DefaultCalibrationParams returns the reference parameter set.
func DefaultCalibrationParams() CalibrationParams {
	return CalibrationParams{
		WindowSeconds:   10,
		StdThreshold:    0.013,
		MeanClip:        2.0,
		SphereCriterion: 0.3,
		MinPoints:       10,
		MinSphereAxes:   3,
		MaxIterations:   50,
	}
}

// windowFeatures holds the 7 per-window features: mean Euclidean norm,
// per-axis mean and per-axis sample standard deviation.
type windowFeatures struct {
	meanNorm float64
	mean     [3]float64
	sd       [3]float64
}

// identityResult builds a failed CalibrationResult carrying the identity
// transform, so applying it is always safe.
func identityResult(message string, points int, errBefore float64) CalibrationResult {
	return CalibrationResult{
		Success:     false,
		Scale:       [3]float64{1, 1, 1},
		Offset:      [3]float64{0, 0, 0},
		ErrorBefore: errBefore,
		ErrorAfter:  errBefore,
		Points:      points,
		Message:     message,
	}
}

// Calibrate fits per-axis scale/offset so stationary windows sit on the unit
// (1 g) sphere. Data-dependent failures come back as Success=false with a
// diagnostic message; they are expected outcomes, not errors.
func Calibrate(raw *RawSampleSet, p CalibrationParams, solver SphereSolver) CalibrationResult {
	feats := extractWindowFeatures(raw, p.WindowSeconds)
	points := selectStationary(feats, p)

	if len(points) < p.MinPoints {
		return identityResult(MsgNotEnoughStationary, len(points), 0)
	}
	if !spansSphere(points, p.SphereCriterion, p.MinSphereAxes) {
		return identityResult(MsgSphereNotCovered, len(points), 0)
	}

	identity := CalibrationResult{Scale: [3]float64{1, 1, 1}}
	errBefore := round5(meanSphereError(points, identity.Offset, identity.Scale))

	offset, scale, err := solver.Solve(points, p.MaxIterations)
	if err != nil {
		monitoring.Debugf("calibration solve failed: %v", err)
		return identityResult(fmt.Sprintf("solver did not converge: %v", err), len(points), errBefore)
	}

	errAfter := round5(meanSphereError(points, offset, scale))
	return CalibrationResult{
		Success:     true,
		Scale:       scale,
		Offset:      offset,
		ErrorBefore: errBefore,
		ErrorAfter:  errAfter,
		Points:      len(points),
		Message:     fmt.Sprintf("calibrated on %d stationary points", len(points)),
	}
}

// extractWindowFeatures partitions the samples into fixed windows and
// computes the 7 features per window. A trailing partial window is dropped.
func extractWindowFeatures(raw *RawSampleSet, windowSeconds float64) []windowFeatures {
	perWindow := int(math.Round(raw.SampleRate * windowSeconds))
	if perWindow <= 1 || raw.Len() < perWindow {
		return nil
	}
	n := raw.Len() / perWindow
	feats := make([]windowFeatures, 0, n)
	for w := 0; w < n; w++ {
		lo := w * perWindow
		hi := lo + perWindow
		var f windowFeatures
		for i := lo; i < hi; i++ {
			f.mean[0] += raw.X[i]
			f.mean[1] += raw.Y[i]
			f.mean[2] += raw.Z[i]
			f.meanNorm += math.Sqrt(raw.X[i]*raw.X[i] + raw.Y[i]*raw.Y[i] + raw.Z[i]*raw.Z[i])
		}
		c := float64(perWindow)
		f.meanNorm /= c
		for a := 0; a < 3; a++ {
			f.mean[a] /= c
		}
		for i := lo; i < hi; i++ {
			dx := raw.X[i] - f.mean[0]
			dy := raw.Y[i] - f.mean[1]
			dz := raw.Z[i] - f.mean[2]
			f.sd[0] += dx * dx
			f.sd[1] += dy * dy
			f.sd[2] += dz * dz
		}
		for a := 0; a < 3; a++ {
			f.sd[a] = math.Sqrt(f.sd[a] / (c - 1))
		}
		feats = append(feats, f)
	}
	return feats
}

// selectStationary filters window features down to the stationary points
// used for the sphere fit: the first window is dropped, invalid windows and
// bit-identical repeats are discarded, then the SD and mean-clip gates apply.
func selectStationary(feats []windowFeatures, p CalibrationParams) [][3]float64 {
	var points [][3]float64
	var prev *windowFeatures
	for i := range feats {
		f := &feats[i]
		if i == 0 {
			prev = f
			continue
		}
		if !validWindow(f) {
			prev = f
			continue
		}
		// Repeated non-wear blocks produce bit-identical windows; keep one.
		if prev != nil && f.mean == prev.mean {
			prev = f
			continue
		}
		prev = f

		stationary := f.sd[0] < p.StdThreshold && f.sd[1] < p.StdThreshold && f.sd[2] < p.StdThreshold
		inRange := math.Abs(f.mean[0]) < p.MeanClip && math.Abs(f.mean[1]) < p.MeanClip && math.Abs(f.mean[2]) < p.MeanClip
		if stationary && inRange {
			points = append(points, f.mean)
		}
	}
	return points
}

func validWindow(f *windowFeatures) bool {
	vals := []float64{f.meanNorm, f.mean[0], f.mean[1], f.mean[2], f.sd[0], f.sd[1], f.sd[2]}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// spansSphere reports whether at least minAxes axes have stationary points
// on both sides of the sphere (min < -criterion and max > +criterion).
func spansSphere(points [][3]float64, criterion float64, minAxes int) bool {
	covered := 0
	for a := 0; a < 3; a++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, pt := range points {
			if pt[a] < lo {
				lo = pt[a]
			}
			if pt[a] > hi {
				hi = pt[a]
			}
		}
		if lo < -criterion && hi > criterion {
			covered++
		}
	}
	return covered >= minAxes
}

// meanSphereError is the mean absolute deviation of the calibrated vector
// magnitude from 1 g over the stationary points.
func meanSphereError(points [][3]float64, offset, scale [3]float64) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, pt := range points {
		x := (pt[0] + offset[0]) * scale[0]
		y := (pt[1] + offset[1]) * scale[1]
		z := (pt[2] + offset[2]) * scale[2]
		sum += math.Abs(math.Sqrt(x*x+y*y+z*z) - 1)
	}
	return sum / float64(len(points))
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// ApplyCalibration returns calibrated copies of the three axis arrays:
// calibrated = (raw + offset) * scale, per axis.
func ApplyCalibration(x, y, z []float64, scale, offset [3]float64) (cx, cy, cz []float64) {
	cx = applyAxis(x, scale[0], offset[0])
	cy = applyAxis(y, scale[1], offset[1])
	cz = applyAxis(z, scale[2], offset[2])
	return cx, cy, cz
}

func applyAxis(v []float64, scale, offset float64) []float64 {
	out := make([]float64, len(v))
	for i, s := range v {
		out[i] = (s + offset) * scale
	}
	return out
}

// ApplyCalibrationTable applies the transform in place to a column table,
// detecting the axis columns by name (case-insensitive match on "x"/"y"/"z"
// or a "_x"-style suffix). Returns an error when an axis column is missing.
func ApplyCalibrationTable(columns map[string][]float64, scale, offset [3]float64) error {
	axes := [3]string{"x", "y", "z"}
	for a, axis := range axes {
		col, ok := findAxisColumn(columns, axis)
		if !ok {
			return fmt.Errorf("no column found for axis %q", axis)
		}
		for i := range col {
			col[i] = (col[i] + offset[a]) * scale[a]
		}
	}
	return nil
}

func findAxisColumn(columns map[string][]float64, axis string) ([]float64, bool) {
	for name, col := range columns {
		lower := strings.ToLower(name)
		if lower == axis || strings.HasSuffix(lower, "_"+axis) {
			return col, true
		}
	}
	return nil, false
}

// Calibrated returns a copy of the sample set with the transform applied.
// Auxiliary channels and metadata are carried over unchanged.
func (r *RawSampleSet) Calibrated(res CalibrationResult) *RawSampleSet {
	cx, cy, cz := ApplyCalibration(r.X, r.Y, r.Z, res.Scale, res.Offset)
	out := *r
	out.X, out.Y, out.Z = cx, cy, cz
	return &out
}
