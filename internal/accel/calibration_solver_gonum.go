package accel

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// GonumSolver is the gonum-backed Levenberg–Marquardt implementation. It
// forms the full Jacobian and solves the damped normal equations with
// gonum/mat, which is noticeably faster than the portable solver on long
// recordings with many stationary windows.
type GonumSolver struct{}

// Name identifies the solver.
func (GonumSolver) Name() string { return "gonum-lm" }

// Solve runs damped Gauss-Newton iterations over the six unknowns.
func (GonumSolver) Solve(points [][3]float64, maxIterations int) (offset, scale [3]float64, err error) {
	if len(points) < 6 {
		return [3]float64{}, [3]float64{1, 1, 1}, errors.New("fewer points than unknowns")
	}
	n := len(points)
	theta := [6]float64{0, 0, 0, 1, 1, 1}
	lambda := 1e-3
	cost := sphereCost(points, theta)

	jac := mat.NewDense(n, 6, nil)
	res := mat.NewVecDense(n, nil)
	row := make([]float64, 6)

	for iter := 0; iter < maxIterations; iter++ {
		for i, pt := range points {
			sphereJacobianRow(pt, theta, row)
			jac.SetRow(i, row)
			res.SetVec(i, sphereResidual(pt, theta))
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), res)

		accepted := false
		for attempt := 0; attempt < 12; attempt++ {
			var damped mat.Dense
			damped.CloneFrom(&jtj)
			for k := 0; k < 6; k++ {
				damped.Set(k, k, damped.At(k, k)*(1+lambda))
			}
			var neg mat.VecDense
			neg.ScaleVec(-1, &jtr)

			var delta mat.VecDense
			if err := delta.SolveVec(&damped, &neg); err != nil {
				lambda *= 10
				continue
			}

			var trial [6]float64
			for k := 0; k < 6; k++ {
				trial[k] = theta[k] + delta.AtVec(k)
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
