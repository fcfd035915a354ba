package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	testCases := []struct {
		unit string
		want bool
	}{
		{"g", true},
		{"mg", true},
		{"ms2", true},
		{"", false},
		{"G", false},
		{"m/s^2", false},
	}

	for _, tc := range testCases {
		if got := IsValid(tc.unit); got != tc.want {
			t.Errorf("IsValid(%q) = %v, want %v", tc.unit, got, tc.want)
		}
	}
}

func TestConvertAcceleration(t *testing.T) {
	testCases := []struct {
		name   string
		value  float64
		target string
		want   float64
	}{
		{"g_to_g", 1.5, G, 1.5},
		{"g_to_mg", 0.013, MG, 13.0},
		{"g_to_ms2", 1.0, MS2, 9.80665},
		{"unknown_passthrough", 2.0, "furlongs", 2.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ConvertAcceleration(tc.value, tc.target)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("ConvertAcceleration(%v, %q) = %v, want %v", tc.value, tc.target, got, tc.want)
			}
		})
	}
}
