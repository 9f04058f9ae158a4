// Package adams implements the Adams family of multistep methods in
// Nordsieck form.
package adams

import (
	"fmt"

	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/mat"
)

// Transformer converts between the Nordsieck form and the classical
// multistep form of the Adams methods using nSteps points.
//
// With s_k = h^k/k! y^(k) and r the rows s_2 ... s_n, advancing one step
// is
//
//	r_{n+1} = update r_n + c1 (s1(n) - s1(n+1))
//
// where update and c1 only depend on the number of steps.
type Transformer struct {
	nSteps int
	update *mat.Dense
	c1     []float64
}

// NewTransformer builds the transformer for nSteps >= 2 points.
func NewTransformer(nSteps int) (*Transformer, error) {
	if nSteps < 2 {
		return nil, fmt.Errorf("%w: adams transformer got %d", ode.ErrTooFewSteps, nSteps)
	}
	rows := nSteps - 1

	p := buildP(rows)
	var lu mat.LU
	lu.Factorize(p)

	ones := make([]float64, rows)
	for i := range ones {
		ones[i] = 1
	}
	var c1 mat.VecDense
	if err := lu.SolveVecTo(&c1, false, mat.NewVecDense(rows, ones)); err != nil {
		return nil, fmt.Errorf("adams: c1 coefficients: %w", err)
	}

	// transform to multistep form, shift by one step, transform back
	shifted := mat.NewDense(rows, rows, nil)
	for i := rows - 1; i > 0; i-- {
		shifted.SetRow(i, mat.Row(nil, i-1, p))
	}
	update := mat.NewDense(rows, rows, nil)
	if err := lu.SolveTo(update, false, shifted); err != nil {
		return nil, fmt.Errorf("adams: update matrix: %w", err)
	}

	return &Transformer{
		nSteps: nSteps,
		update: update,
		c1:     mat.Col(nil, 0, &c1),
	}, nil
}

// buildP returns the matrix linking the Nordsieck rows s_2 ... s_k to the
// multistep form: P[i][j] = (j+2) (-(i+1))^(j+1).
func buildP(rows int) *mat.Dense {
	p := mat.NewDense(rows, rows, nil)
	for i := 1; i <= rows; i++ {
		factor := -float64(i)
		aj := factor
		for j := 1; j <= rows; j++ {
			p.Set(i-1, j-1, aj*float64(j+1))
			aj *= factor
		}
	}
	return p
}

// NSteps returns the number of points of the method.
func (a *Transformer) NSteps() int { return a.nSteps }

// InitializeHighOrderDerivatives fits s_2 ... s_nSteps to the points
// (t[i], y[i], yDot[i]) through Taylor expansions around t[0]:
//
//	y(ti)  - y(t0)  - di y'(t0) =   di^2/h^2 s2 + ... +   di^k/h^k sk
//	y'(ti) - y'(t0)             = 2 di/h^2   s2 + ... + k di^(k-1)/h^k sk
//
// An extra unknown absorbs the truncation remainder so it does not leak
// into the wanted terms. The system is solved in the least squares sense.
func (a *Transformer) InitializeHighOrderDerivatives(h float64, t []float64, y, yDot [][]float64) (*mat.Dense, error) {
	if len(t) < 2 || len(y) != len(t) || len(yDot) != len(t) {
		return nil, ode.CheckDimension("initialization points", len(y), len(t))
	}
	unknowns := a.nSteps
	equations := 2 * (len(t) - 1)
	if equations < unknowns {
		return nil, fmt.Errorf("%w: %d points cannot fit %d nordsieck terms", ode.ErrTooFewSteps, len(t), unknowns)
	}
	dim := len(y[0])

	lhs := mat.NewDense(equations, unknowns, nil)
	rhs := mat.NewDense(equations, dim, nil)
	y0, yDot0 := y[0], yDot[0]
	for i := 1; i < len(t); i++ {
		if err := ode.CheckDimension("state", len(y[i]), dim); err != nil {
			return nil, err
		}
		if err := ode.CheckDimension("derivative", len(yDot[i]), dim); err != nil {
			return nil, err
		}

		di := t[i] - t[0]
		ratio := di / h
		dikm1OverHk := 1 / h
		for j := 0; j < unknowns; j++ {
			dikm1OverHk *= ratio
			lhs.Set(2*i-2, j, di*dikm1OverHk)
			lhs.Set(2*i-1, j, float64(j+2)*dikm1OverHk)
		}
		for j := 0; j < dim; j++ {
			rhs.Set(2*i-2, j, y[i][j]-y0[j]-di*yDot0[j])
			rhs.Set(2*i-1, j, yDot[i][j]-yDot0[j])
		}
	}

	var qr mat.QR
	qr.Factorize(lhs)
	var x mat.Dense
	if err := qr.SolveTo(&x, false, rhs); err != nil {
		return nil, fmt.Errorf("adams: nordsieck initialization: %w", err)
	}

	// drop the remainder row
	return mat.DenseCopyOf(x.Slice(0, unknowns-1, 0, dim)), nil
}

// UpdateHighOrderDerivativesPhase1 returns update · nordsieck, the part
// of the update that does not depend on the new derivative.
func (a *Transformer) UpdateHighOrderDerivativesPhase1(nordsieck *mat.Dense) *mat.Dense {
	var next mat.Dense
	next.Mul(a.update, nordsieck)
	return &next
}

// UpdateHighOrderDerivativesPhase2 adds c1 (start - end) to every row of
// nordsieck in place, start and end being the scaled derivatives at
// both ends of the step.
func (a *Transformer) UpdateHighOrderDerivativesPhase2(start, end []float64, nordsieck *mat.Dense) {
	rows, cols := nordsieck.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			nordsieck.Set(i, j, nordsieck.At(i, j)+a.c1[i]*(start[j]-end[j]))
		}
	}
}
