// Package dense stores the steps of an integration for interpolation at
// arbitrary times after the integration is over.
package dense

import (
	"fmt"
	"math"

	"github.com/rollingthunder/multistep/ode"
)

// Model is a step handler keeping a copy of every step interpolator. It
// can then give the solution at any time of the integrated range.
//
// Lookups start from the step of the previous lookup, so sequential
// queries cost about one step comparison each.
type Model struct {
	initialTime, finalTime float64
	forward                bool
	index                  int
	steps                  []ode.StepInterpolator

	interpolatedTime  float64
	interpolatedState *ode.StateAndDerivative
}

// New returns an empty model.
func New() *Model {
	m := &Model{}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.initialTime, m.finalTime = math.NaN(), math.NaN()
	m.forward = true
	m.index = 0
	m.steps = nil
	m.interpolatedTime, m.interpolatedState = math.NaN(), nil
}

// Init drops the steps of a previous integration.
func (m *Model) Init(initial *ode.StateAndDerivative, finalTime float64) {
	m.reset()
}

// HandleStep stores a copy of the interpolator. The model always ends
// at the latest step, also when another handler stops the integration.
func (m *Model) HandleStep(interpolator ode.StepInterpolator, isLast bool) (ode.Action, error) {
	if len(m.steps) == 0 {
		m.initialTime = interpolator.PreviousTime()
		m.forward = interpolator.IsForward()
	}
	m.steps = append(m.steps, interpolator.Copy())
	m.finalTime = interpolator.CurrentTime()
	m.index = len(m.steps) - 1
	return ode.Continue, nil
}

// Append adds the steps of other at the end of the model. other must be
// integrated in the same direction, with the same dimension, and start
// where the model ends.
func (m *Model) Append(other *Model) error {
	if len(other.steps) == 0 {
		return nil
	}

	if len(m.steps) == 0 {
		m.initialTime = other.initialTime
		m.forward = other.forward
	} else {
		last := m.steps[len(m.steps)-1]
		if err := ode.CheckDimension("appended model state", dimension(other.steps[0].CurrentState()), dimension(last.CurrentState())); err != nil {
			return err
		}
		if m.forward != other.forward {
			return ErrPropagationDirectionMismatch
		}

		current := last.CurrentTime()
		step := current - last.PreviousTime()
		gap := other.InitialTime() - current
		if math.Abs(gap) > 1e-3*math.Abs(step) {
			return fmt.Errorf("%w: %g after %g", ErrHoleBetweenModels, math.Abs(gap), current)
		}
	}

	for _, s := range other.steps {
		m.steps = append(m.steps, s.Copy())
	}
	m.index = len(m.steps) - 1
	m.finalTime = m.steps[m.index].CurrentTime()
	return nil
}

func dimension(s *ode.StateAndDerivative) int {
	n := s.PrimaryStateDimension()
	for i := 1; i <= s.NumberOfSecondaryStates(); i++ {
		n += s.SecondaryStateDimension(i)
	}
	return n
}

// InitialTime returns the start of the integration, NaN without steps.
func (m *Model) InitialTime() float64 { return m.initialTime }

// FinalTime returns the end of the latest stored step, NaN without
// steps.
func (m *Model) FinalTime() float64 { return m.finalTime }

// Len returns the number of stored steps.
func (m *Model) Len() int { return len(m.steps) }

// InterpolatedTime returns the time of the last SetInterpolatedTime.
func (m *Model) InterpolatedTime() float64 { return m.interpolatedTime }

// InterpolatedState returns the state computed by the last
// SetInterpolatedTime.
func (m *Model) InterpolatedState() *ode.StateAndDerivative { return m.interpolatedState }

func middle(s ode.StepInterpolator) float64 {
	return 0.5 * (s.PreviousTime() + s.CurrentTime())
}

// SetInterpolatedTime computes the state at t. Times outside of the
// integrated range are extrapolated from the first or last step.
func (m *Model) SetInterpolatedTime(t float64) error {
	if len(m.steps) == 0 {
		return ErrEmptyModel
	}
	m.index = m.locate(t)

	state, err := m.steps[m.index].InterpolatedState(t)
	if err != nil {
		return err
	}
	m.interpolatedTime, m.interpolatedState = t, state
	return nil
}

// locate returns the index of the step containing t.
func (m *Model) locate(t float64) int {
	iMin, iMax := 0, len(m.steps)-1
	tMin, tMax := middle(m.steps[iMin]), middle(m.steps[iMax])

	// outside of the range, or in the first or last step
	if m.locatePoint(t, m.steps[iMin]) <= 0 {
		return iMin
	}
	if m.locatePoint(t, m.steps[iMax]) >= 0 {
		return iMax
	}

	index := m.index
	for iMax-iMin > 5 {
		// split at the last estimate
		si := m.steps[index]
		switch location := m.locatePoint(t, si); {
		case location < 0:
			iMax, tMax = index, middle(si)
		case location > 0:
			iMin, tMin = index, middle(si)
		default:
			return index
		}

		iMed := (iMin + iMax) / 2
		tMed := middle(m.steps[iMed])
		if math.Abs(tMed-tMin) < 1e-6 || math.Abs(tMax-tMed) < 1e-6 {
			// too close to the bounds, plain dichotomy
			index = iMed
		} else {
			// the inverse quadratic i = P(t) through the three middles
			d12, d23, d13 := tMax-tMed, tMed-tMin, tMax-tMin
			dt1, dt2, dt3 := t-tMax, t-tMed, t-tMin
			iLagrange := ((dt2*dt3*d23)*float64(iMax) -
				(dt1*dt3*d13)*float64(iMed) +
				(dt1*dt2*d12)*float64(iMin)) / (d12 * d23 * d13)
			index = int(math.RoundToEven(iLagrange))
		}

		// shrink the slice by at least a tenth
		low := max(iMin+1, (9*iMin+iMax)/10)
		high := min(iMax-1, (iMin+9*iMax)/10)
		if index < low {
			index = low
		} else if index > high {
			index = high
		}
	}

	index = iMin
	for index < iMax && m.locatePoint(t, m.steps[index]) > 0 {
		index++
	}
	return index
}

// locatePoint tells whether t is before (-1), inside (0) or after (+1)
// the step, following the integration direction.
func (m *Model) locatePoint(t float64, step ode.StepInterpolator) int {
	if m.forward {
		if t < step.PreviousTime() {
			return -1
		} else if t > step.CurrentTime() {
			return 1
		}
		return 0
	}
	if t > step.PreviousTime() {
		return -1
	} else if t < step.CurrentTime() {
		return 1
	}
	return 0
}
