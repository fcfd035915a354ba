// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common numeric test helpers to reduce code
// duplication across the algorithm test files.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within delta of want.
func AssertInDelta(t *testing.T, got, want, delta float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > delta {
		t.Errorf("value = %v, want %v (±%v)", got, want, delta)
	}
}

// AssertFloatsEqual checks two float slices for exact equality.
func AssertFloatsEqual(t *testing.T, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("value mismatch at index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// AssertFloatsInDelta checks two float slices for elementwise closeness.
func AssertFloatsInDelta(t *testing.T, got, want []float64, delta float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if math.IsNaN(got[i]) || math.Abs(got[i]-want[i]) > delta {
			t.Errorf("value mismatch at index %d: got %v, want %v (±%v)", i, got[i], want[i], delta)
		}
	}
}

// ConstantSlice returns a slice of n copies of v.
func ConstantSlice(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Ramp returns a slice [start, start+step, ...] of length n.
func Ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
