package accel

import (
	"math"
	"testing"
)

// sphereOrientations spans all six sides of the unit sphere: the axis poles
// plus the eight corner diagonals.
func sphereOrientations() [][3]float64 {
	d := 1 / math.Sqrt(3)
	return [][3]float64{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
		{d, d, d}, {d, d, -d}, {d, -d, d}, {d, -d, -d},
		{-d, d, d}, {-d, d, -d}, {-d, -d, d}, {-d, -d, -d},
	}
}

// makeStationaryRaw builds a recording of 10-second stationary windows, one
// per orientation, stored so that (stored + offset) * scale recovers the
// orientation exactly. A throwaway window is prepended because calibration
// drops the first window.
func makeStationaryRaw(orientations [][3]float64, scale, offset [3]float64) *RawSampleSet {
	const rate = 10.0
	perWindow := int(rate * 10)
	n := (len(orientations) + 1) * perWindow
	raw := &RawSampleSet{
		X:          make([]float64, 0, n),
		Y:          make([]float64, 0, n),
		Z:          make([]float64, 0, n),
		Timestamps: make([]float64, 0, n),
		SampleRate: rate,
	}
	emit := func(v [3]float64) {
		for i := 0; i < perWindow; i++ {
			raw.X = append(raw.X, v[0]/scale[0]-offset[0])
			raw.Y = append(raw.Y, v[1]/scale[1]-offset[1])
			raw.Z = append(raw.Z, v[2]/scale[2]-offset[2])
			raw.Timestamps = append(raw.Timestamps, float64(len(raw.Timestamps))/rate)
		}
	}
	emit([3]float64{0.7, 0.7, 0.14}) // discarded first window
	for _, o := range orientations {
		emit(o)
	}
	return raw
}

func solvers() map[string]SphereSolver {
	return map[string]SphereSolver{
		"portable": PortableSolver{},
		"gonum":    GonumSolver{},
	}
}

func TestCalibrateRecoversKnownDistortion(t *testing.T) {
	scale := [3]float64{1.02, 0.97, 1.01}
	offset := [3]float64{0.05, -0.03, 0.02}
	raw := makeStationaryRaw(sphereOrientations(), scale, offset)

	for name, solver := range solvers() {
		t.Run(name, func(t *testing.T) {
			res := Calibrate(raw, DefaultCalibrationParams(), solver)
			if !res.Success {
				t.Fatalf("calibration failed: %s", res.Message)
			}
			if res.Points != len(sphereOrientations()) {
				t.Errorf("points = %d, want %d", res.Points, len(sphereOrientations()))
			}
			if res.ErrorAfter > 1e-4 {
				t.Errorf("error after = %v, want near zero", res.ErrorAfter)
			}
			if res.ErrorAfter > res.ErrorBefore {
				t.Errorf("error did not improve: before %v, after %v", res.ErrorBefore, res.ErrorAfter)
			}
			for a := 0; a < 3; a++ {
				if math.Abs(res.Scale[a]-scale[a]) > 5e-3 {
					t.Errorf("scale[%d] = %v, want %v", a, res.Scale[a], scale[a])
				}
				if math.Abs(res.Offset[a]-offset[a]) > 5e-3 {
					t.Errorf("offset[%d] = %v, want %v", a, res.Offset[a], offset[a])
				}
			}
		})
	}
}

func TestCalibrateIdempotent(t *testing.T) {
	scale := [3]float64{1.05, 0.95, 1.02}
	offset := [3]float64{0.04, -0.02, 0.01}
	raw := makeStationaryRaw(sphereOrientations(), scale, offset)

	res := Calibrate(raw, DefaultCalibrationParams(), PortableSolver{})
	if !res.Success {
		t.Fatalf("calibration failed: %s", res.Message)
	}

	// Calibrating already-calibrated data should leave the residual error
	// where the first solve put it.
	again := Calibrate(raw.Calibrated(res), DefaultCalibrationParams(), PortableSolver{})
	if !again.Success {
		t.Fatalf("second calibration failed: %s", again.Message)
	}
	if math.Abs(again.ErrorBefore-res.ErrorAfter) > 1e-4 {
		t.Errorf("second error before = %v, want %v", again.ErrorBefore, res.ErrorAfter)
	}
}

func TestCalibrateTooFewStationaryPoints(t *testing.T) {
	raw := makeStationaryRaw(sphereOrientations()[:4], [3]float64{1, 1, 1}, [3]float64{0, 0, 0})
	res := Calibrate(raw, DefaultCalibrationParams(), PortableSolver{})

	if res.Success {
		t.Fatal("expected failure with too few stationary points")
	}
	if res.Message != MsgNotEnoughStationary {
		t.Errorf("message = %q, want %q", res.Message, MsgNotEnoughStationary)
	}
	// Never partially-fitted values: identity transform on failure.
	if res.Scale != [3]float64{1, 1, 1} || res.Offset != [3]float64{0, 0, 0} {
		t.Errorf("failure result not identity: scale=%v offset=%v", res.Scale, res.Offset)
	}
}

func TestCalibrateSphereNotCovered(t *testing.T) {
	// Twelve orientations all near +z: no axis sees both sphere sides.
	var orientations [][3]float64
	for i := 0; i < 12; i++ {
		tilt := 0.01 * float64(i)
		norm := math.Sqrt(1 + tilt*tilt)
		orientations = append(orientations, [3]float64{tilt / norm, 0, 1 / norm})
	}
	raw := makeStationaryRaw(orientations, [3]float64{1, 1, 1}, [3]float64{0, 0, 0})
	res := Calibrate(raw, DefaultCalibrationParams(), PortableSolver{})

	if res.Success {
		t.Fatal("expected sphere-coverage failure")
	}
	if res.Message != MsgSphereNotCovered {
		t.Errorf("message = %q, want %q", res.Message, MsgSphereNotCovered)
	}
	if res.Scale != [3]float64{1, 1, 1} || res.Offset != [3]float64{0, 0, 0} {
		t.Errorf("failure result not identity: scale=%v offset=%v", res.Scale, res.Offset)
	}
}

func TestApplyCalibrationIdentityRoundTrip(t *testing.T) {
	x := []float64{0.1, -0.2, 0.3}
	y := []float64{0.4, 0.5, -0.6}
	z := []float64{0.9, 1.0, -1.1}

	cx, cy, cz := ApplyCalibration(x, y, z, [3]float64{1, 1, 1}, [3]float64{0, 0, 0})
	for i := range x {
		if cx[i] != x[i] || cy[i] != y[i] || cz[i] != z[i] {
			t.Fatalf("identity round trip changed values at %d", i)
		}
	}
}

func TestApplyCalibrationTable(t *testing.T) {
	columns := map[string][]float64{
		"Accel_X": {1, 2},
		"Accel_Y": {3, 4},
		"Accel_Z": {5, 6},
		"lux":     {100, 200},
	}
	err := ApplyCalibrationTable(columns, [3]float64{2, 2, 2}, [3]float64{1, 1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if columns["Accel_X"][0] != 4 || columns["Accel_Y"][1] != 10 || columns["Accel_Z"][0] != 12 {
		t.Errorf("table transform wrong: %v", columns)
	}
	if columns["lux"][0] != 100 {
		t.Error("non-axis column modified")
	}

	if err := ApplyCalibrationTable(map[string][]float64{"x": {1}, "y": {1}}, [3]float64{1, 1, 1}, [3]float64{0, 0, 0}); err == nil {
		t.Error("expected missing-axis error")
	}
}
