package circadian

import (
	"errors"
	"math"
	"testing"
)

func TestCohenKappaIdenticalMixed(t *testing.T) {
	a := make([]bool, 200)
	for i := range a {
		a[i] = i%3 == 0
	}
	b := make([]bool, 200)
	copy(b, a)

	ag, err := CohenKappa(a, b)
	if err != nil {
		t.Fatalf("CohenKappa: %v", err)
	}
	if ag.Observed != 1 {
		t.Errorf("observed = %v, want 1", ag.Observed)
	}
	if ag.Kappa != 1 {
		t.Errorf("kappa = %v, want 1", ag.Kappa)
	}
}

func TestCohenKappaIdenticalUniform(t *testing.T) {
	// Both raters label every epoch the same single class. Expected
	// agreement is exactly 1, and kappa must still report 1, not 0/0.
	a := make([]bool, 100)
	for i := range a {
		a[i] = true
	}
	b := make([]bool, 100)
	copy(b, a)

	ag, err := CohenKappa(a, b)
	if err != nil {
		t.Fatalf("CohenKappa: %v", err)
	}
	if ag.Observed != 1 || ag.Expected != 1 {
		t.Fatalf("observed=%v expected=%v, want 1/1", ag.Observed, ag.Expected)
	}
	if ag.Kappa != 1 {
		t.Errorf("kappa = %v, want 1", ag.Kappa)
	}
}

func TestCohenKappaCompleteDisagreement(t *testing.T) {
	a := make([]bool, 100)
	b := make([]bool, 100)
	for i := range a {
		a[i] = i < 50
		b[i] = i >= 50
	}
	ag, err := CohenKappa(a, b)
	if err != nil {
		t.Fatalf("CohenKappa: %v", err)
	}
	if ag.Observed != 0 {
		t.Errorf("observed = %v, want 0", ag.Observed)
	}
	if math.Abs(ag.Kappa-(-1)) > 1e-12 {
		t.Errorf("kappa = %v, want -1", ag.Kappa)
	}
}

func TestCohenKappaChanceLevel(t *testing.T) {
	// One rater says true everywhere, the other half the time: agreement
	// equals what chance predicts, so kappa is 0.
	a := make([]bool, 100)
	b := make([]bool, 100)
	for i := range a {
		a[i] = true
		b[i] = i < 50
	}
	ag, err := CohenKappa(a, b)
	if err != nil {
		t.Fatalf("CohenKappa: %v", err)
	}
	if math.Abs(ag.Observed-0.5) > 1e-12 || math.Abs(ag.Expected-0.5) > 1e-12 {
		t.Fatalf("observed=%v expected=%v, want 0.5/0.5", ag.Observed, ag.Expected)
	}
	if math.Abs(ag.Kappa) > 1e-12 {
		t.Errorf("kappa = %v, want 0", ag.Kappa)
	}
}

func TestCohenKappaErrors(t *testing.T) {
	if _, err := CohenKappa(make([]bool, 3), make([]bool, 4)); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("err = %v, want ErrLengthMismatch", err)
	}
	if _, err := CohenKappa(nil, nil); !errors.Is(err, ErrShortSeries) {
		t.Errorf("err = %v, want ErrShortSeries", err)
	}
}
