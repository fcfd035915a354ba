package circadian

import (
	"errors"
	"fmt"
)

// ErrLengthMismatch is returned when two label series being compared do not
// cover the same epochs.
var ErrLengthMismatch = errors.New("label series lengths differ")

// Agreement compares two binary label series epoch by epoch.
type Agreement struct {
	// Observed is the raw fraction of epochs on which both series agree.
	Observed float64
	// Expected is the agreement two independent raters with the same
	// marginal rates would reach by chance.
	Expected float64
	// Kappa is chance-corrected agreement: (Observed-Expected)/(1-Expected).
	Kappa float64
}

// CohenKappa computes chance-corrected agreement between two binary label
// series of equal length. When both observed and expected agreement are
// exactly 1 the labels are in perfect, trivially expected accord and kappa
// is reported as 1 rather than 0/0.
func CohenKappa(a, b []bool) (*Agreement, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return nil, fmt.Errorf("cohen kappa: %w", ErrShortSeries)
	}

	// 2x2 contingency counts: c[i][j] holds epochs where a==i and b==j.
	var c [2][2]float64
	for i := range a {
		ai, bi := 0, 0
		if a[i] {
			ai = 1
		}
		if b[i] {
			bi = 1
		}
		c[ai][bi]++
	}
	n := float64(len(a))

	po := (c[0][0] + c[1][1]) / n
	pe := ((c[0][0]+c[0][1])*(c[0][0]+c[1][0]) + (c[1][0]+c[1][1])*(c[0][1]+c[1][1])) / (n * n)

	out := &Agreement{Observed: po, Expected: pe}
	if pe == 1 {
		if po == 1 {
			out.Kappa = 1
		}
		// po < 1 with pe == 1 cannot happen: expected agreement is 1
		// only when one label dominates both series entirely.
		return out, nil
	}
	out.Kappa = (po - pe) / (1 - pe)
	return out, nil
}
