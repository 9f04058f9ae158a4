package multistep

import "github.com/rollingthunder/multistep/ode"

// nordsieckInitializer is the step handler attached to the starter. It
// records the first points of the solution and asks the starter to stop
// as soon as it has enough of them.
type nordsieckInitializer struct {
	mapper  *ode.EquationsMapper
	count   int
	t       []float64
	y, yDot [][]float64
}

func newNordsieckInitializer(points int, mapper *ode.EquationsMapper) *nordsieckInitializer {
	return &nordsieckInitializer{
		mapper: mapper,
		t:      make([]float64, points),
		y:      make([][]float64, points),
		yDot:   make([][]float64, points),
	}
}

func (n *nordsieckInitializer) Init(initial *ode.StateAndDerivative, finalTime float64) {
	n.count = 0
}

func (n *nordsieckInitializer) HandleStep(interpolator ode.StepInterpolator, isLast bool) (ode.Action, error) {
	if n.complete() {
		return ode.Stop, nil
	}

	if n.count == 0 {
		// step handlers only see step ends, the very first point is the
		// start of the first step
		if err := n.record(interpolator.PreviousState()); err != nil {
			return ode.Stop, err
		}
	}
	if err := n.record(interpolator.CurrentState()); err != nil {
		return ode.Stop, err
	}

	if n.complete() {
		return ode.Stop, nil
	}
	return ode.Continue, nil
}

func (n *nordsieckInitializer) record(s *ode.StateAndDerivative) error {
	y, err := n.mapper.MapState(&s.State)
	if err != nil {
		return err
	}
	yDot, err := n.mapper.MapDerivative(s)
	if err != nil {
		return err
	}
	n.t[n.count], n.y[n.count], n.yDot[n.count] = s.Time(), y, yDot
	n.count++
	return nil
}

func (n *nordsieckInitializer) complete() bool {
	return n.count == len(n.t)
}
