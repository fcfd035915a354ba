//go:build !purego

package backend

import "github.com/somnolab/actigraphy/internal/accel"

// The native backend drives calibration through the gonum linear-algebra
// kernels and is preferred whenever it is compiled in.
func init() {
	defaultBuilders = append(defaultBuilders, func(r *Registry) error {
		return r.Register(newEngine("native", accel.GonumSolver{}), 0)
	})
}
