package timeutil

import (
	"testing"
	"time"
)

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("Now() = %v, want %v", clock.Now(), start)
	}

	clock.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !clock.Now().Equal(want) {
		t.Errorf("after Advance, Now() = %v, want %v", clock.Now(), want)
	}

	if got := clock.Since(start); got != 90*time.Second {
		t.Errorf("Since(start) = %v, want 90s", got)
	}
}

func TestMockClockSet(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	target := time.Unix(1700000000, 0)
	clock.Set(target)
	if !clock.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", clock.Now(), target)
	}
}

func TestRealClockMonotonic(t *testing.T) {
	var clock RealClock
	a := clock.Now()
	if clock.Since(a) < 0 {
		t.Error("Since returned negative duration")
	}
}
