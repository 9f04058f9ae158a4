package multistep

import (
	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/mat"
)

// NordsieckInterpolator evaluates the Taylor expansion held by a
// Nordsieck vector around its reference time. It owns copies of the
// vector, so it stays valid when the integrator moves on and Copy
// returns the receiver.
type NordsieckInterpolator struct {
	mapper    *ode.EquationsMapper
	forward   bool
	previous  *ode.StateAndDerivative
	reference *ode.StateAndDerivative

	referenceState []float64
	stepSize       float64
	scaled         []float64
	nordsieck      *mat.Dense
}

// NewNordsieckInterpolator returns the interpolator of the step ending
// at reference. The expansion is centered on reference, with scaled =
// h y'(reference) and nordsieck the rows k >= 2 for step size h.
func NewNordsieckInterpolator(mapper *ode.EquationsMapper, forward bool, previous, reference *ode.StateAndDerivative,
	h float64, scaled []float64, nordsieck *mat.Dense) (*NordsieckInterpolator, error) {
	y, err := mapper.MapState(&reference.State)
	if err != nil {
		return nil, err
	}
	if err = ode.CheckDimension("scaled derivative", len(scaled), len(y)); err != nil {
		return nil, err
	}

	n := &NordsieckInterpolator{
		mapper:         mapper,
		forward:        forward,
		previous:       previous,
		reference:      reference,
		referenceState: y,
		stepSize:       h,
		scaled:         append([]float64(nil), scaled...),
	}
	if nordsieck != nil {
		if _, c := nordsieck.Dims(); c != len(y) {
			return nil, ode.CheckDimension("nordsieck columns", c, len(y))
		}
		n.nordsieck = mat.DenseCopyOf(nordsieck)
	}
	return n, nil
}

func (n *NordsieckInterpolator) PreviousTime() float64 { return n.previous.Time() }
func (n *NordsieckInterpolator) CurrentTime() float64  { return n.reference.Time() }
func (n *NordsieckInterpolator) IsForward() bool       { return n.forward }

func (n *NordsieckInterpolator) PreviousState() *ode.StateAndDerivative { return n.previous }
func (n *NordsieckInterpolator) CurrentState() *ode.StateAndDerivative  { return n.reference }

func (n *NordsieckInterpolator) Copy() ode.StepInterpolator { return n }

// InterpolatedState evaluates the expansion at t.
func (n *NordsieckInterpolator) InterpolatedState(t float64) (*ode.StateAndDerivative, error) {
	x := t - n.reference.Time()
	normalized := x / n.stepSize

	dim := len(n.referenceState)
	variation := make([]float64, dim)
	derivative := make([]float64, dim)

	if n.nordsieck != nil {
		rows, _ := n.nordsieck.Dims()
		// sum from the highest order term down
		for i := rows - 1; i >= 0; i-- {
			order := i + 2
			power := 1.0
			for k := 0; k < order; k++ {
				power *= normalized
			}
			for j := 0; j < dim; j++ {
				d := n.nordsieck.At(i, j)
				variation[j] += d * power
				derivative[j] += float64(order) * d * power
			}
		}
	}

	y := make([]float64, dim)
	yDot := make([]float64, dim)
	for j := 0; j < dim; j++ {
		variation[j] += n.scaled[j] * normalized
		y[j] = n.referenceState[j] + variation[j]
		if x == 0 {
			yDot[j] = n.scaled[j] / n.stepSize
		} else {
			yDot[j] = (derivative[j] + n.scaled[j]*normalized) / x
		}
	}
	return n.mapper.MapStateAndDerivative(t, y, yDot)
}
