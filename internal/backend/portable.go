package backend

import "github.com/somnolab/actigraphy/internal/accel"

// The portable backend uses the dependency-free solver and is always
// compiled in, so Create("") can never come up empty.
func init() {
	defaultBuilders = append(defaultBuilders, func(r *Registry) error {
		return r.Register(newEngine("portable", accel.PortableSolver{}), 10)
	})
}
