// Package multistep holds the machinery shared by multistep methods in
// Nordsieck form: bootstrapping the Nordsieck vector from a single step
// starter, step size control and rescaling.
//
// The Nordsieck vector of a step of size h holds the scaled derivatives
// h^k/k! y^(k)(t). The first one (k = 1) is kept apart as the scaled
// derivative, the matrix rows hold k = 2, 3, ...
package multistep

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/mat"
)

// Phase of a multistep integrator.
type Phase int

const (
	// NotStarted: no Nordsieck vector, the next integration starts over.
	NotStarted Phase = iota
	// Starting: the starter is collecting the first points.
	Starting
	// NordsieckReady: the first Nordsieck vector is known.
	NordsieckReady
	// Stepping: the Nordsieck vector follows the accepted steps.
	Stepping
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not started"
	case Starting:
		return "starting"
	case NordsieckReady:
		return "nordsieck ready"
	case Stepping:
		return "stepping"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// NordsieckInitializer builds the high order part of the Nordsieck
// vector from the points collected by the starter. It is what makes a
// multistep method concrete (Adams, ...).
type NordsieckInitializer interface {
	// InitializeHighOrderDerivatives returns the rows k >= 2 of the
	// Nordsieck vector at t[0] for step size h, one column per
	// component of the complete state.
	InitializeHighOrderDerivatives(h float64, t []float64, y, yDot [][]float64) (*mat.Dense, error)
}

// Integrator is the generic part of a multistep integrator. Concrete
// methods embed it and drive the steps.
type Integrator struct {
	ode.IntegratorInfo
	nSteps      int
	starter     ode.Integrator
	initializer NordsieckInitializer

	safety, minReduction, maxGrowth float64

	phase     Phase
	stepSize  float64
	scaled    []float64
	nordsieck *mat.Dense

	handlers []ode.StepHandler
	logger   kitlog.Logger
}

// New returns the core of a multistep method of the given order using
// nSteps previous points. starter provides the first points.
func New(info ode.IntegratorInfo, nSteps int, starter ode.Integrator, initializer NordsieckInitializer) (*Integrator, error) {
	if nSteps < 2 {
		return nil, fmt.Errorf("%w: %s method got %d", ode.ErrTooFewSteps, info.Name, nSteps)
	}
	if info.Order == 0 {
		return nil, fmt.Errorf("%w: %s method of order 0", ode.ErrInvalidConfig, info.Name)
	}

	return &Integrator{
		IntegratorInfo: info,
		nSteps:         nSteps,
		starter:        starter,
		initializer:    initializer,
		safety:         0.9,
		minReduction:   0.2,
		maxGrowth:      math.Pow(2.0, 1.0/float64(info.Order)),
		logger:         ode.NopLogger(),
	}, nil
}

// NSteps returns the number of previous points of the method.
func (m *Integrator) NSteps() int { return m.nSteps }

// Starter returns the integrator used to compute the first points.
func (m *Integrator) Starter() ode.Integrator { return m.starter }

// SetStarter replaces the integrator used to compute the first points.
func (m *Integrator) SetStarter(starter ode.Integrator) { m.starter = starter }

// Safety is the factor applied to the optimal step size ratio, 0.9 by
// default.
func (m *Integrator) Safety() float64     { return m.safety }
func (m *Integrator) SetSafety(s float64) { m.safety = s }

// MinReduction is the smallest step size ratio between two steps, 0.2
// by default.
func (m *Integrator) MinReduction() float64     { return m.minReduction }
func (m *Integrator) SetMinReduction(r float64) { m.minReduction = r }

// MaxGrowth is the largest step size ratio between two steps,
// 2^(1/order) by default. Large values make the high order Nordsieck
// components, which scale as ratio^k, lose accuracy.
func (m *Integrator) MaxGrowth() float64     { return m.maxGrowth }
func (m *Integrator) SetMaxGrowth(g float64) { m.maxGrowth = g }

// Phase returns where the integrator is in its life cycle.
func (m *Integrator) Phase() Phase { return m.phase }

// AddStepHandler registers h to be called after every accepted step.
func (m *Integrator) AddStepHandler(h ode.StepHandler) {
	m.handlers = append(m.handlers, h)
}

// ClearStepHandlers removes all step handlers.
func (m *Integrator) ClearStepHandlers() {
	m.handlers = nil
}

// StepHandlers returns the registered step handlers.
func (m *Integrator) StepHandlers() []ode.StepHandler {
	return m.handlers
}

// SetLogger replaces the logger, which defaults to a nop logger.
func (m *Integrator) SetLogger(logger kitlog.Logger) {
	m.logger = kitlog.With(logger, "integrator", m.Name)
}

// Logger returns the logger of the integrator.
func (m *Integrator) Logger() kitlog.Logger {
	return m.logger
}

// StepSize returns the (signed) step size the Nordsieck vector is
// scaled for.
func (m *Integrator) StepSize() float64 { return m.stepSize }

// ScaledDerivative returns h y'. The slice belongs to the integrator
// and changes with Rescale and Update.
func (m *Integrator) ScaledDerivative() []float64 { return m.scaled }

// NordsieckMatrix returns the rows k >= 2 of the Nordsieck vector. The
// matrix belongs to the integrator and changes with Rescale and Update.
func (m *Integrator) NordsieckMatrix() *mat.Dense { return m.nordsieck }

// Update installs the Nordsieck vector of the latest accepted step.
func (m *Integrator) Update(stepSize float64, scaled []float64, nordsieck *mat.Dense) {
	m.stepSize, m.scaled, m.nordsieck = stepSize, scaled, nordsieck
	m.phase = Stepping
}

// Start computes the first Nordsieck vector by running the starter
// from the current time and state of eqs towards tEnd until enough
// points are known. The time and state of eqs are left untouched.
// It returns the number of derivative evaluations the starter used.
func (m *Integrator) Start(eqs *ode.ExpandableODE, tEnd float64, c *ode.Config) (evaluations uint, err error) {
	if m.starter == nil {
		return 0, fmt.Errorf("multistep: %s has no starter integrator", m.Name)
	}

	t0 := eqs.Time()
	y0 := eqs.CompleteState()
	defer func() {
		eqs.SetTime(t0)
		if rErr := eqs.SetCompleteState(y0); rErr != nil && err == nil {
			err = rErr
		}
	}()

	m.phase = Starting
	initializer := newNordsieckInitializer(StartPoints(m.nSteps), eqs.Mapper())

	m.starter.ClearStepHandlers()
	m.starter.AddStepHandler(initializer)
	defer m.starter.ClearStepHandlers()

	// higher accuracy for starting proc
	starterConfig := *c
	starterConfig.RelativeTolerance = math.Max(1e-1*c.RelativeTolerance, 1e-14)
	starterConfig.AbsoluteTolerance = math.Max(1e-1*c.AbsoluteTolerance, 1e-14)
	starterConfig.OneStepOnly = false

	stat, err := m.starter.Integrate(eqs, tEnd, &starterConfig)
	evaluations = stat.EvaluationCount
	if err != nil {
		m.phase = NotStarted
		return evaluations, fmt.Errorf("multistep: starter %s: %w", m.starter.Info().Name, err)
	}
	if !initializer.complete() {
		m.phase = NotStarted
		return evaluations, fmt.Errorf("%w: %d of %d points before t=%g", ode.ErrStarterStoppedEarly, initializer.count, len(initializer.t), tEnd)
	}

	t, y, yDot := initializer.t, initializer.y, initializer.yDot
	last := len(t) - 1
	h := (t[last] - t[0]) / float64(last)

	scaled := make([]float64, len(yDot[0]))
	for j := range scaled {
		scaled[j] = h * yDot[0][j]
	}

	nordsieck, err := m.initializer.InitializeHighOrderDerivatives(h, t, y, yDot)
	if err != nil {
		m.phase = NotStarted
		return evaluations, fmt.Errorf("multistep: nordsieck initialization: %w", err)
	}

	m.stepSize, m.scaled, m.nordsieck = h, scaled, nordsieck
	m.phase = NordsieckReady
	m.logger.Log("level", "debug", "event", "started", "points", len(t), "h", h, "evaluations", evaluations)
	return evaluations, nil
}

// StartPoints returns the number of points the starter provides to a
// method using nSteps previous points: ceil((nSteps+3)/2).
func StartPoints(nSteps int) int {
	return (nSteps + 4) / 2
}

// ComputeStepGrowShrinkFactor returns the ratio between the next and
// the current step size for a normalized error estimate.
func (m *Integrator) ComputeStepGrowShrinkFactor(errorEstimate float64) float64 {
	return math.Min(m.maxGrowth, math.Max(m.minReduction, m.safety*math.Pow(errorEstimate, -1.0/float64(m.Order))))
}

// Rescale changes the step size the Nordsieck vector refers to. Row k
// (k >= 2) is multiplied by ratio^k.
func (m *Integrator) Rescale(stepSize float64) {
	if m.stepSize == stepSize {
		return
	}
	rescale(stepSize/m.stepSize, m.scaled, m.nordsieck)
	m.stepSize = stepSize
}

func rescale(ratio float64, scaled []float64, nordsieck *mat.Dense) {
	for j := range scaled {
		scaled[j] *= ratio
	}
	if nordsieck == nil {
		return
	}
	rows, cols := nordsieck.Dims()
	power := ratio
	for i := 0; i < rows; i++ {
		power *= ratio
		for j := 0; j < cols; j++ {
			nordsieck.Set(i, j, nordsieck.At(i, j)*power)
		}
	}
}

// FilterStep enforces the step bounds of c on h. A step below the
// minimum is an error unless acceptSmall is set, it is then raised to
// the minimum.
func (m *Integrator) FilterStep(h float64, forward, acceptSmall bool, c *ode.Config) (float64, error) {
	filtered := h
	if math.Abs(h) < c.MinStepSize {
		if !acceptSmall {
			return 0, fmt.Errorf("multistep: %w (%g < %g)", ode.ErrStepSizeTooSmall, math.Abs(h), c.MinStepSize)
		}
		filtered = c.MinStepSize
		if !forward {
			filtered = -filtered
		}
	}

	if c.MaxStepSize > 0 {
		if filtered > c.MaxStepSize {
			filtered = c.MaxStepSize
		} else if filtered < -c.MaxStepSize {
			filtered = -c.MaxStepSize
		}
	}
	return filtered, nil
}
