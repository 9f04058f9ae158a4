package problems

import (
	"fmt"

	"github.com/rollingthunder/multistep/ode"
)

type brusselator struct {
	// Reaction Constants A and B
	a, b float64
	// Diffusion Constant alpha
	alpha float64
	// Grid Side length
	n int

	// Precalculated constants
	// alphaN1Squared = alpha * (n - 1)^2
	// a1 = A + 1
	alphaN1Squared, a1 float64
}

func v0(x, y float64) float64 {
	return 1 + 0.8*x
}

func u0(x, y float64) float64 {
	return 2 + 0.25*y
}

// NewBruss2D initializes a new Brusselator 2D problem
// using the given grid side length n
// and standard parameters found in literature
// A = 3.4, B = 1.0
// alpha = 0.002
// u(0, x, y) = 2 + 0.25y
// v(0, x, y) = 1 + 0.8x
// The state holds u and v of each cell interleaved.
func NewBruss2D(n int) Problem {
	var b brusselator
	b.a, b.b, b.n = 3.4, 1.0, n
	b.alpha = 0.002
	n1 := float64(n) - 1.0
	b.a1, b.alphaN1Squared = b.a+1.0, b.alpha*n1*n1
	return &b
}

func (b *brusselator) Description() string {
	return fmt.Sprintf("Brusselator 2D, %dx%d grid", b.n, b.n)
}

func (b *brusselator) Dimension() int {
	return 2 * b.n * b.n
}

func (b *brusselator) Initialize() []float64 {
	y0 := make([]float64, b.Dimension())
	n1 := float64(b.n) - 1.0
	for i := 0; i < b.n*b.n; i++ {
		x, y := i%b.n, i/b.n
		xNorm, yNorm := float64(x)/n1, float64(y)/n1
		y0[2*i], y0[2*i+1] = u0(xNorm, yNorm), v0(xNorm, yNorm)
	}
	return y0
}

// rate computes the derivative of the cell at index with Neumann
// boundary conditions
func (b *brusselator) rate(index int, conc []float64) (du, dv float64) {
	cells := b.n * b.n
	top, right, bottom, left := index-b.n, index+1, index+b.n, index-1
	if top < 0 {
		top = bottom
	} else if bottom >= cells {
		bottom = top
	}

	if idxModN := index % b.n; idxModN == 0 {
		left = right
	} else if b.n-idxModN == 1 {
		right = left
	}

	u := func(i int) float64 { return conc[2*i] }
	v := func(i int) float64 { return conc[2*i+1] }

	uvv := u(index) * u(index) * v(index)
	du = b.b + uvv - b.a1*u(index) + b.alphaN1Squared*(u(top)+u(bottom)+u(left)+u(right)-4.0*u(index))
	dv = b.a*u(index) - uvv + b.alphaN1Squared*(v(top)+v(bottom)+v(left)+v(right)-4.0*v(index))
	return
}

func (b *brusselator) ComputeDerivatives(t float64, yT, dy_out []float64) error {
	if err := ode.CheckDimension("brusselator state", len(yT), b.Dimension()); err != nil {
		return err
	}
	for i := 0; i < b.n*b.n; i++ {
		dy_out[2*i], dy_out[2*i+1] = b.rate(i, yT)
	}
	return nil
}
