package problems

import "github.com/rollingthunder/multistep/ode"

// Problem is an initial value problem usable as primary equations.
type Problem interface {
	ode.Primary
	Description() string
	Initialize() []float64
}
