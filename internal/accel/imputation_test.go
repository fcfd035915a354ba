package accel

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func contiguousRaw(n int, rate float64) *RawSampleSet {
	raw := &RawSampleSet{
		X:          make([]float64, n),
		Y:          make([]float64, n),
		Z:          make([]float64, n),
		Timestamps: make([]float64, n),
		SampleRate: rate,
	}
	for i := 0; i < n; i++ {
		raw.X[i] = float64(i) * 0.001
		raw.Y[i] = -float64(i) * 0.002
		raw.Z[i] = 1
		raw.Timestamps[i] = float64(i) / rate
	}
	return raw
}

func TestImputeNoGaps(t *testing.T) {
	raw := contiguousRaw(500, 50)
	res, err := Impute(raw, DefaultGapTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GapCount != 0 || res.SamplesAdded != 0 || res.GapSeconds != 0 {
		t.Errorf("gap stats = %+v, want zeros", res)
	}
	// Zero gaps means all four arrays come back exactly equal.
	if diff := cmp.Diff(raw.X, res.X); diff != "" {
		t.Errorf("x mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(raw.Timestamps, res.Timestamps); diff != "" {
		t.Errorf("timestamps mismatch (-want +got):\n%s", diff)
	}
}

func TestImputeFillsGapByReplication(t *testing.T) {
	const rate = 10.0
	raw := contiguousRaw(100, rate)
	// Introduce a 5-second hole after sample 49.
	for i := 50; i < 100; i++ {
		raw.Timestamps[i] += 5
	}

	res, err := Impute(raw, DefaultGapTolerance)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GapCount != 1 {
		t.Fatalf("gap count = %d, want 1", res.GapCount)
	}
	wantAdded := 50 // 5 s at 10 Hz
	if res.SamplesAdded != wantAdded {
		t.Errorf("samples added = %d, want %d", res.SamplesAdded, wantAdded)
	}
	if math.Abs(res.GapSeconds-5.0) > 1e-9 {
		t.Errorf("gap seconds = %v, want 5.0", res.GapSeconds)
	}
	if len(res.X) != raw.Len()+wantAdded {
		t.Fatalf("output length = %d, want %d", len(res.X), raw.Len()+wantAdded)
	}

	// The filled rows replicate the last known sample before the gap.
	for k := 0; k < wantAdded; k++ {
		i := 50 + k
		if res.X[i] != raw.X[49] || res.Y[i] != raw.Y[49] || res.Z[i] != raw.Z[49] {
			t.Fatalf("filled row %d not replicated from last sample", i)
		}
		wantTS := raw.Timestamps[49] + float64(k+1)/rate
		if math.Abs(res.Timestamps[i]-wantTS) > 1e-9 {
			t.Fatalf("filled timestamp %d = %v, want %v", i, res.Timestamps[i], wantTS)
		}
	}

	// Timestamps stay strictly increasing across the splice.
	for i := 1; i < len(res.Timestamps); i++ {
		if res.Timestamps[i] <= res.Timestamps[i-1] {
			t.Fatalf("timestamps not increasing at %d", i)
		}
	}
}

func TestImputeNeverShrinks(t *testing.T) {
	testCases := []struct {
		name     string
		gapAfter int
		gapSecs  float64
	}{
		{"no_gap", -1, 0},
		{"short_gap", 10, 2},
		{"long_gap", 30, 600},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw := contiguousRaw(60, 5)
			if tc.gapAfter >= 0 {
				for i := tc.gapAfter; i < raw.Len(); i++ {
					raw.Timestamps[i] += tc.gapSecs
				}
			}
			res, err := Impute(raw, DefaultGapTolerance)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Timestamps) < raw.Len() {
				t.Errorf("imputation shrank data: %d < %d", len(res.Timestamps), raw.Len())
			}
		})
	}
}
