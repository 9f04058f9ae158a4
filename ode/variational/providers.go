package variational

import (
	"fmt"
	"math"

	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/mat"
)

// MainStateJacobianProvider is a primary ODE that also knows its
// Jacobian with respect to the state.
type MainStateJacobianProvider interface {
	ode.Primary
	// ComputeMainStateJacobian writes dF/dY at (t, y) into the
	// dimension x dimension matrix dFdY. yDot is F(t, y).
	ComputeMainStateJacobian(t float64, y, yDot []float64, dFdY *mat.Dense) error
}

// Parameterizable is implemented by anything that deals with named
// parameters.
type Parameterizable interface {
	ParametersNames() []string
	IsSupported(name string) bool
}

// ParameterJacobianProvider computes dF/dp for the parameters it
// supports.
type ParameterJacobianProvider interface {
	Parameterizable
	// ComputeParameterJacobian writes dF/dp at (t, y) into dFdP, which
	// has the dimension of the state. yDot is F(t, y).
	ComputeParameterJacobian(t float64, y, yDot []float64, name string, dFdP []float64) error
}

// ParameterizedODE gives access to the parameter values of an ODE, which
// is what finite differences with respect to parameters need.
type ParameterizedODE interface {
	Parameterizable
	Parameter(name string) (float64, error)
	SetParameter(name string, value float64) error
}

// MainStateJacobianWrapper approximates dF/dY of an ODE by forward
// differences with a step per state component.
type MainStateJacobianWrapper struct {
	primary ode.Primary
	hY      []float64
	scratch []float64
}

// NewMainStateJacobianWrapper wraps primary. hY holds one step per
// state component.
func NewMainStateJacobianWrapper(primary ode.Primary, hY []float64) (*MainStateJacobianWrapper, error) {
	if err := ode.CheckDimension("state steps", len(hY), primary.Dimension()); err != nil {
		return nil, err
	}
	return &MainStateJacobianWrapper{
		primary: primary,
		hY:      append([]float64(nil), hY...),
		scratch: make([]float64, primary.Dimension()),
	}, nil
}

// Primary returns the wrapped equations.
func (w *MainStateJacobianWrapper) Primary() ode.Primary { return w.primary }

func (w *MainStateJacobianWrapper) Dimension() int { return w.primary.Dimension() }

func (w *MainStateJacobianWrapper) ComputeDerivatives(t float64, y, yDot []float64) error {
	return w.primary.ComputeDerivatives(t, y, yDot)
}

// ComputeMainStateJacobian shifts one component of y at a time, y is
// restored before returning.
func (w *MainStateJacobianWrapper) ComputeMainStateJacobian(t float64, y, yDot []float64, dFdY *mat.Dense) error {
	n := len(w.hY)
	for j := 0; j < n; j++ {
		saved := y[j]
		y[j] += w.hY[j]
		err := w.primary.ComputeDerivatives(t, y, w.scratch)
		y[j] = saved
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			dFdY.Set(i, j, (w.scratch[i]-yDot[i])/w.hY[j])
		}
	}
	return nil
}

// ParameterJacobianWrapper approximates dF/dp by forward differences,
// shifting the parameter value of a ParameterizedODE.
type ParameterJacobianWrapper struct {
	primary ode.Primary
	pode    ParameterizedODE
	steps   []*ParameterConfiguration
	scratch []float64
}

// NewParameterJacobianWrapper wraps pode, whose parameters drive
// primary. The steps are read from steps at every evaluation, so later
// changes of the configurations are seen.
func NewParameterJacobianWrapper(primary ode.Primary, pode ParameterizedODE, steps []*ParameterConfiguration) *ParameterJacobianWrapper {
	return &ParameterJacobianWrapper{
		primary: primary,
		pode:    pode,
		steps:   steps,
		scratch: make([]float64, primary.Dimension()),
	}
}

func (w *ParameterJacobianWrapper) ParametersNames() []string {
	return w.pode.ParametersNames()
}

func (w *ParameterJacobianWrapper) IsSupported(name string) bool {
	return w.pode.IsSupported(name)
}

func (w *ParameterJacobianWrapper) step(name string) float64 {
	for _, p := range w.steps {
		if p.Name() == name {
			return p.Step()
		}
	}
	return math.NaN()
}

// ComputeParameterJacobian evaluates F with the parameter shifted by its
// step. The parameter is restored before returning.
func (w *ParameterJacobianWrapper) ComputeParameterJacobian(t float64, y, yDot []float64, name string, dFdP []float64) error {
	if !w.pode.IsSupported(name) {
		for i := range dFdP {
			dFdP[i] = 0
		}
		return nil
	}

	hP := w.step(name)
	if math.IsNaN(hP) || hP == 0 {
		return fmt.Errorf("%w %q", ode.ErrMissingParameterStep, name)
	}

	p, err := w.pode.Parameter(name)
	if err != nil {
		return err
	}
	if err = w.pode.SetParameter(name, p+hP); err != nil {
		return err
	}
	err = w.primary.ComputeDerivatives(t, y, w.scratch)
	if rErr := w.pode.SetParameter(name, p); rErr != nil && err == nil {
		err = rErr
	}
	if err != nil {
		return err
	}

	for i := range dFdP {
		dFdP[i] = (w.scratch[i] - yDot[i]) / hP
	}
	return nil
}
