package ode

type Config struct {
	// InitialStepSize, if > 0.0 specifies the step size
	// to be used in the first integration step
	// Else, the implementation should use a sensible default
	InitialStepSize float64

	// MinStepSize, if > 0.0 specifies the minimal size of a processing step
	// processing will abort, if this value could not be reached
	MinStepSize float64

	// MaxStepSize if > 0.0 specifies the maximum size of a processing step
	// steps are shortened to this value
	MaxStepSize float64

	//
	AbsoluteTolerance float64

	RelativeTolerance float64

	// MaxStepCount if > 0 specifies the maximum number number of steps the Integrator
	// will take before aborting processing if the target time has not been reached
	MaxStepCount uint

	// OneStepOnly, if set, causes the Integrator to stop processing
	// after the first integration step was performed
	OneStepOnly bool
}

type Statistics struct {
	// StepCount contains the number of steps the Integrator performed to calculate the
	StepCount uint
	// RejectedCount is the number of steps the Integrator rejected during processing
	RejectedCount uint
	// EvaluationCount is the number of times the right hand side expression
	// of the differential equation was evaluated during processing
	EvaluationCount uint

	// LastStepSize is the size of the last integration step performed
	LastStepSize float64
	// NextStepSize is the size of the next Step the integrator would take
	NextStepSize float64
	// CurrentTime is the value of t up to which the integration was performed
	CurrentTime float64

	// Interrupted is set when a step handler stopped the integration
	// before the target time
	Interrupted bool
}

// Integrator advances an ExpandableODE from its current time and state
// to tEnd. The final time and state are written back to eqs. config is
// only read, its defaults are resolved per integration.
type Integrator interface {
	Info() IntegratorInfo
	Integrate(eqs *ExpandableODE, tEnd float64, config *Config) (stat Statistics, err error)
	AddStepHandler(h StepHandler)
	ClearStepHandlers()
}

type IntegratorInfo struct {
	Name          string
	Stages, Order uint
}

func (i *IntegratorInfo) Info() IntegratorInfo {
	return *i
}
