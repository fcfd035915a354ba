package accel

import (
	"math"
	"testing"

	"github.com/somnolab/actigraphy/internal/testutil"
)

func TestENMOConcreteValues(t *testing.T) {
	testCases := []struct {
		name    string
		x, y, z float64
		want    float64
	}{
		{"resting_z", 0, 0, 1, 0},
		{"resting_x", 1, 0, 0, 0},
		{"diagonal", 1, 1, 1, math.Sqrt(3) - 1},
		{"below_1g_clamps", 0.1, 0.1, 0.1, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ENMOValues([]float64{tc.x}, []float64{tc.y}, []float64{tc.z})[0]
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("ENMO(%v,%v,%v) = %v, want %v", tc.x, tc.y, tc.z, got, tc.want)
			}
		})
	}
}

func TestENMONonNegativeAndSignInvariant(t *testing.T) {
	x := []float64{0.3, -1.2, 0.05, 2.4}
	y := []float64{-0.7, 0.1, 0.0, -1.9}
	z := []float64{1.1, 0.9, -1.0, 0.2}

	base := ENMOValues(x, y, z)
	for i, v := range base {
		if v < 0 {
			t.Errorf("ENMO negative at %d: %v", i, v)
		}
	}

	// Negating any single axis preserves magnitude, so ENMO is unchanged.
	for axis := 0; axis < 3; axis++ {
		nx := append([]float64(nil), x...)
		ny := append([]float64(nil), y...)
		nz := append([]float64(nil), z...)
		switch axis {
		case 0:
			for i := range nx {
				nx[i] = -nx[i]
			}
		case 1:
			for i := range ny {
				ny[i] = -ny[i]
			}
		case 2:
			for i := range nz {
				nz[i] = -nz[i]
			}
		}
		flipped := ENMOValues(nx, ny, nz)
		for i := range base {
			if math.Abs(flipped[i]-base[i]) > 1e-12 {
				t.Errorf("axis %d negation changed ENMO at %d: %v != %v", axis, i, flipped[i], base[i])
			}
		}
	}
}

func TestAngleVertical(t *testing.T) {
	got := AngleValues([]float64{0}, []float64{0}, []float64{1})[0]
	if math.Abs(got-90.0) > 1e-12 {
		t.Errorf("angle(0,0,1) = %v, want 90", got)
	}

	down := AngleValues([]float64{0}, []float64{0}, []float64{-1})[0]
	if math.Abs(down+90.0) > 1e-12 {
		t.Errorf("angle(0,0,-1) = %v, want -90", down)
	}

	flat := AngleValues([]float64{1}, []float64{0}, []float64{0})[0]
	if math.Abs(flat) > 1e-12 {
		t.Errorf("angle(1,0,0) = %v, want 0", flat)
	}
}

func TestENMOSeries(t *testing.T) {
	raw := contiguousRaw(10, 10)
	series, err := ENMO(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Name != "enmo" || len(series.Values) != raw.Len() {
		t.Errorf("series = %q len %d, want enmo len %d", series.Name, len(series.Values), raw.Len())
	}
	if len(series.Timestamps) != raw.Len() {
		t.Errorf("timestamps len = %d, want %d", len(series.Timestamps), raw.Len())
	}
}

func TestEpochMeansIgnoresNaN(t *testing.T) {
	values := []float64{10, math.NaN(), 20, math.NaN(), math.NaN(), math.NaN()}
	timestamps := []float64{0, 1, 2, 3, 4, 5}

	means, times, err := EpochMeans(values, timestamps, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(means) != 2 || len(times) != 2 {
		t.Fatalf("lengths = %d/%d, want 2/2", len(means), len(times))
	}
	if math.Abs(means[0]-15) > 1e-12 {
		t.Errorf("means[0] = %v, want 15 (NaN ignored)", means[0])
	}
	if !math.IsNaN(means[1]) {
		t.Errorf("means[1] = %v, want NaN for all-NaN window", means[1])
	}
}

func TestMetricSeriesInUnits(t *testing.T) {
	series := &MetricSeries{Name: "enmo", Values: []float64{0, 0.05, 1.2}}

	mg, err := series.InUnits("mg")
	testutil.AssertNoError(t, err)
	if mg.Name != "enmo_mg" {
		t.Errorf("name = %q, want enmo_mg", mg.Name)
	}
	testutil.AssertFloatsInDelta(t, mg.Values, []float64{0, 50, 1200}, 1e-9)

	ms2, err := series.InUnits("ms2")
	testutil.AssertNoError(t, err)
	testutil.AssertInDelta(t, ms2.Values[2], 1.2*9.80665, 1e-9)

	// Conversion never mutates the source.
	testutil.AssertFloatsEqual(t, series.Values, []float64{0, 0.05, 1.2})

	_, err = series.InUnits("furlongs")
	testutil.AssertError(t, err)
}
