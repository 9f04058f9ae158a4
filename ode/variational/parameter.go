package variational

import "math"

// ParameterConfiguration is a selected parameter with its finite
// difference step. The step is NaN until set.
type ParameterConfiguration struct {
	name string
	hP   float64
}

func newParameterConfiguration(name string) *ParameterConfiguration {
	return &ParameterConfiguration{name: name, hP: math.NaN()}
}

func (p *ParameterConfiguration) Name() string  { return p.name }
func (p *ParameterConfiguration) Step() float64 { return p.hP }
