package ode

// Action tells the integrator what to do after a step handler ran.
type Action int

const (
	// Continue lets the integration go on.
	Continue Action = iota
	// Stop ends the integration successfully after the current step.
	Stop
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// StepInterpolator gives access to the solution inside one accepted step.
type StepInterpolator interface {
	PreviousTime() float64
	CurrentTime() float64
	PreviousState() *StateAndDerivative
	CurrentState() *StateAndDerivative
	// InterpolatedState evaluates the solution at t. Times slightly
	// outside of the step are extrapolated.
	InterpolatedState(t float64) (*StateAndDerivative, error)
	IsForward() bool
	// Copy returns an interpolator that stays valid after the
	// integrator moved on to the next step.
	Copy() StepInterpolator
}

// StepHandler observes accepted steps. The integrator calls it inline,
// right after accepting each step.
//
// HandleStep returns one of three outcomes: Continue, Stop, or a non
// nil error which aborts the integration and is returned to the caller.
type StepHandler interface {
	Init(initial *StateAndDerivative, finalTime float64)
	HandleStep(interpolator StepInterpolator, isLast bool) (Action, error)
}
