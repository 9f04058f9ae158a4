package ode

// Function evaluates the right hand side of yT'(t) = Fcn(t, yT(t))
// into dy_out.
type Function func(t float64, yT []float64, dy_out []float64)

// Primary is the main differential equation of a composite ODE.
type Primary interface {
	// Dimension returns the size of the state vector.
	Dimension() int
	// ComputeDerivatives writes y'(t) into yDot.
	ComputeDerivatives(t float64, y, yDot []float64) error
}

// PrimaryInitializer is implemented by primary equations that want to
// be told about the start of an integration.
type PrimaryInitializer interface {
	Init(t0 float64, y0 []float64, finalTime float64)
}

// Secondary is a set of equations riding along a primary one, like
// variational equations. It may depend on the primary state and its
// derivative, the primary never depends on it.
type Secondary interface {
	Dimension() int
	ComputeDerivatives(t float64, primary, primaryDot, secondary, secondaryDot []float64) error
}

// SecondaryInitializer is implemented by secondary equations that want
// to be told about the start of an integration.
type SecondaryInitializer interface {
	Init(t0 float64, primary0, secondary0 []float64, finalTime float64)
}

type functionEquations struct {
	dimension int
	fcn       Function
}

// Equations wraps a plain Function of the given dimension as primary
// equations.
func Equations(dimension int, fcn Function) Primary {
	return &functionEquations{dimension: dimension, fcn: fcn}
}

func (f *functionEquations) Dimension() int {
	return f.dimension
}

func (f *functionEquations) ComputeDerivatives(t float64, y, yDot []float64) error {
	f.fcn(t, y, yDot)
	return nil
}
