package problems

import (
	"fmt"
	"math"

	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/mat"
)

// ParameterK is the name of the rate constant of Decay.
const ParameterK = "k"

// Decay is the scalar exponential decay y' = -k y with y(t0) = y0. It
// exposes k as a parameter and knows the exact Jacobians.
type Decay struct {
	k, y0 float64
}

func NewDecay(k, y0 float64) *Decay {
	return &Decay{k: k, y0: y0}
}

func (d *Decay) Description() string {
	return fmt.Sprintf("exponential decay, k=%g", d.k)
}

func (d *Decay) Dimension() int {
	return 1
}

func (d *Decay) Initialize() []float64 {
	return []float64{d.y0}
}

// Solution returns y(t) for a start at t0.
func (d *Decay) Solution(t0, t float64) float64 {
	return d.y0 * math.Exp(-d.k*(t-t0))
}

func (d *Decay) ComputeDerivatives(t float64, y, yDot []float64) error {
	yDot[0] = -d.k * y[0]
	return nil
}

func (d *Decay) ComputeMainStateJacobian(t float64, y, yDot []float64, dFdY *mat.Dense) error {
	dFdY.Set(0, 0, -d.k)
	return nil
}

func (d *Decay) ParametersNames() []string {
	return []string{ParameterK}
}

func (d *Decay) IsSupported(name string) bool {
	return name == ParameterK
}

func (d *Decay) Parameter(name string) (float64, error) {
	if name != ParameterK {
		return 0, &ode.ParameterError{Name: name}
	}
	return d.k, nil
}

func (d *Decay) SetParameter(name string, value float64) error {
	if name != ParameterK {
		return &ode.ParameterError{Name: name}
	}
	d.k = value
	return nil
}

func (d *Decay) ComputeParameterJacobian(t float64, y, yDot []float64, name string, dFdP []float64) error {
	if name != ParameterK {
		return &ode.ParameterError{Name: name}
	}
	dFdP[0] = -y[0]
	return nil
}
