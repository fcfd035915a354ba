package accel

import (
	"errors"
	"math"
)

// SphereSolver fits per-axis offset and scale so the given stationary points
// sit on the unit sphere, minimising Σ(‖(p+offset)·scale‖ − 1)². Solvers are
// seeded at offset=0, scale=1.
type SphereSolver interface {
	Name() string
	Solve(points [][3]float64, maxIterations int) (offset, scale [3]float64, err error)
}

var errSolverDiverged = errors.New("levenberg-marquardt did not converge")

// sphereCost evaluates the summed squared residual for a parameter vector
// theta = [o0, o1, o2, s0, s1, s2].
func sphereCost(points [][3]float64, theta [6]float64) float64 {
	cost := 0.0
	for _, pt := range points {
		r := sphereResidual(pt, theta)
		cost += r * r
	}
	return cost
}

func sphereResidual(pt [3]float64, theta [6]float64) float64 {
	x := (pt[0] + theta[0]) * theta[3]
	y := (pt[1] + theta[1]) * theta[4]
	z := (pt[2] + theta[2]) * theta[5]
	return math.Sqrt(x*x+y*y+z*z) - 1
}

// sphereJacobianRow fills one Jacobian row: derivatives of the residual with
// respect to the three offsets then the three scales.
func sphereJacobianRow(pt [3]float64, theta [6]float64, row []float64) {
	u := [3]float64{
		(pt[0] + theta[0]) * theta[3],
		(pt[1] + theta[1]) * theta[4],
		(pt[2] + theta[2]) * theta[5],
	}
	norm := math.Sqrt(u[0]*u[0] + u[1]*u[1] + u[2]*u[2])
	if norm == 0 {
		norm = 1e-12
	}
	for a := 0; a < 3; a++ {
		row[a] = theta[3+a] * u[a] / norm
		row[3+a] = (pt[a] + theta[a]) * u[a] / norm
	}
}

// PortableSolver is the fully portable Levenberg–Marquardt implementation.
// It builds the 6×6 normal equations by hand and solves them with Gaussian
// elimination, so it carries no numeric dependencies.
type PortableSolver struct{}

// Name identifies the solver.
func (PortableSolver) Name() string { return "portable-lm" }

// Solve runs damped Gauss-Newton iterations over the six unknowns.
func (PortableSolver) Solve(points [][3]float64, maxIterations int) (offset, scale [3]float64, err error) {
	if len(points) < 6 {
		return [3]float64{}, [3]float64{1, 1, 1}, errors.New("fewer points than unknowns")
	}
	theta := [6]float64{0, 0, 0, 1, 1, 1}
	lambda := 1e-3
	cost := sphereCost(points, theta)

	row := make([]float64, 6)
	for iter := 0; iter < maxIterations; iter++ {
		var jtj [6][6]float64
		var jtr [6]float64
		for _, pt := range points {
			sphereJacobianRow(pt, theta, row)
			r := sphereResidual(pt, theta)
			for i := 0; i < 6; i++ {
				jtr[i] += row[i] * r
				for j := i; j < 6; j++ {
					jtj[i][j] += row[i] * row[j]
				}
			}
		}
		for i := 0; i < 6; i++ {
			for j := 0; j < i; j++ {
				jtj[i][j] = jtj[j][i]
			}
		}

		accepted := false
		for attempt := 0; attempt < 12; attempt++ {
			a := jtj
			var b [6]float64
			for i := 0; i < 6; i++ {
				a[i][i] *= 1 + lambda
				b[i] = -jtr[i]
			}
			delta, ok := solve6(a, b)
			if !ok {
				lambda *= 10
				continue
			}
			var trial [6]float64
			for i := 0; i < 6; i++ {
				trial[i] = theta[i] + delta[i]
			}
			trialCost := sphereCost(points, trial)
			if trialCost < cost {
				improvement := cost - trialCost
				theta = trial
				cost = trialCost
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
				if improvement < 1e-12 {
					iter = maxIterations // converged
				}
				break
			}
			lambda *= 10
		}
		if !accepted {
			break
		}
	}

	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return [3]float64{}, [3]float64{1, 1, 1}, errSolverDiverged
	}
	copy(offset[:], theta[0:3])
	copy(scale[:], theta[3:6])
	return offset, scale, nil
}

// solve6 solves a 6×6 linear system with partial pivoting. Returns ok=false
// for a (near-)singular system.
func solve6(a [6][6]float64, b [6]float64) ([6]float64, bool) {
	const n = 6
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-14 {
			return [6]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	var x [6]float64
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, true
}
