package ode

// HermiteInterpolator interpolates inside one step with the cubic
// Hermite polynomial matching state and derivative at both ends.
// It is immutable, so Copy returns the receiver.
type HermiteInterpolator struct {
	mapper                 *EquationsMapper
	forward                bool
	t0, t1                 float64
	y0, f0, y1, f1         []float64
	previousState, current *StateAndDerivative
}

// NewHermiteInterpolator builds the interpolator of the step from
// (t0, y0, f0) to (t1, y1, f1), all arrays being complete states laid
// out by mapper. The arrays are copied.
func NewHermiteInterpolator(mapper *EquationsMapper, forward bool, t0 float64, y0, f0 []float64, t1 float64, y1, f1 []float64) (*HermiteInterpolator, error) {
	previous, err := mapper.MapStateAndDerivative(t0, y0, f0)
	if err != nil {
		return nil, err
	}
	current, err := mapper.MapStateAndDerivative(t1, y1, f1)
	if err != nil {
		return nil, err
	}

	return &HermiteInterpolator{
		mapper:        mapper,
		forward:       forward,
		t0:            t0,
		t1:            t1,
		y0:            clone(y0),
		f0:            clone(f0),
		y1:            clone(y1),
		f1:            clone(f1),
		previousState: previous,
		current:       current,
	}, nil
}

func (h *HermiteInterpolator) PreviousTime() float64 { return h.t0 }
func (h *HermiteInterpolator) CurrentTime() float64  { return h.t1 }
func (h *HermiteInterpolator) IsForward() bool       { return h.forward }

func (h *HermiteInterpolator) PreviousState() *StateAndDerivative { return h.previousState }
func (h *HermiteInterpolator) CurrentState() *StateAndDerivative  { return h.current }

func (h *HermiteInterpolator) Copy() StepInterpolator { return h }

// InterpolatedState evaluates the Hermite polynomial at t.
func (h *HermiteInterpolator) InterpolatedState(t float64) (*StateAndDerivative, error) {
	step := h.t1 - h.t0
	if step == 0 {
		return h.previousState, nil
	}

	theta := (t - h.t0) / step
	theta2 := theta * theta
	theta3 := theta2 * theta

	// basis functions and their derivatives with respect to theta
	h00, h10 := 2*theta3-3*theta2+1, theta3-2*theta2+theta
	h01, h11 := -2*theta3+3*theta2, theta3-theta2
	d00, d10 := 6*theta2-6*theta, 3*theta2-4*theta+1
	d01, d11 := -6*theta2+6*theta, 3*theta2-2*theta

	n := len(h.y0)
	y, yDot := make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = h00*h.y0[i] + h10*step*h.f0[i] + h01*h.y1[i] + h11*step*h.f1[i]
		yDot[i] = (d00*h.y0[i]+d01*h.y1[i])/step + d10*h.f0[i] + d11*h.f1[i]
	}
	return h.mapper.MapStateAndDerivative(t, y, yDot)
}
