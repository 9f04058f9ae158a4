package problems

import (
	"fmt"

	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/mat"
)

// Linear is the constant coefficient system y' = A y. It provides its
// exact Jacobian, which is A.
type Linear struct {
	a  *mat.Dense
	y0 []float64
}

// NewLinear returns y' = A y starting from y0. A must be square with
// the dimension of y0.
func NewLinear(a mat.Matrix, y0 []float64) (*Linear, error) {
	r, c := a.Dims()
	if err := ode.CheckDimension("linear system matrix rows", r, len(y0)); err != nil {
		return nil, err
	}
	if err := ode.CheckDimension("linear system matrix columns", c, len(y0)); err != nil {
		return nil, err
	}
	return &Linear{a: mat.DenseCopyOf(a), y0: append([]float64(nil), y0...)}, nil
}

func (l *Linear) Description() string {
	r, _ := l.a.Dims()
	return fmt.Sprintf("linear system, dimension %d", r)
}

func (l *Linear) Dimension() int {
	r, _ := l.a.Dims()
	return r
}

func (l *Linear) Initialize() []float64 {
	return append([]float64(nil), l.y0...)
}

func (l *Linear) ComputeDerivatives(t float64, y, yDot []float64) error {
	mat.NewVecDense(len(yDot), yDot).MulVec(l.a, mat.NewVecDense(len(y), y))
	return nil
}

func (l *Linear) ComputeMainStateJacobian(t float64, y, yDot []float64, dFdY *mat.Dense) error {
	dFdY.Copy(l.a)
	return nil
}
