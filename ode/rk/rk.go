package rk

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
	"github.com/rollingthunder/multistep/ode"
	"github.com/rollingthunder/multistep/util"
	"gonum.org/v1/gonum/floats"
)

type RKMethod int

// RK is an embedded Runge-Kutta integrator with adaptive step size
// control. It serves as the starter of the multistep methods.
type RK struct {
	ode.IntegratorInfo
	method           RKMethod
	firstStageAsLast bool
	b, c, e          []float64
	a                [][]float64

	handlers []ode.StepHandler
	logger   kitlog.Logger
}

// AddStepHandler registers h to be called after every accepted step.
func (r *RK) AddStepHandler(h ode.StepHandler) {
	r.handlers = append(r.handlers, h)
}

// ClearStepHandlers removes all step handlers.
func (r *RK) ClearStepHandlers() {
	r.handlers = nil
}

// SetLogger replaces the logger, which defaults to a nop logger.
func (r *RK) SetLogger(logger kitlog.Logger) {
	r.logger = kitlog.With(logger, "integrator", r.Name)
}

// Integrate advances eqs to tEnd with adaptive steps. The defaults
// are filled into a copy of config.
func (r *RK) Integrate(eqs *ode.ExpandableODE, tEnd float64, config *ode.Config) (stat ode.Statistics, err error) {
	t := eqs.Time()
	prepared := *config
	c := &prepared
	if err = c.ValidateAndPrepare(t, tEnd); err != nil {
		return
	}

	if r.a == nil || r.b == nil || r.c == nil {
		err = fmt.Errorf("rk: %s method coefficients not initialized", r.Name)
		return
	}

	// local variables
	n := uint(eqs.TotalDimension())
	forward := tEnd >= t
	direction := 1.0
	if !forward {
		direction = -1.0
	}
	mapper := eqs.Mapper()
	fcn := eqs.ComputeDerivatives

	// allocate temp matrices
	yT := eqs.CompleteState()
	fcnValue := make([]float64, n)
	yCurrent := make([]float64, n)
	yError := make([]float64, n)
	yPrevious := make([]float64, n)
	fcnPrevious := make([]float64, n)
	ks := util.MakeRectangular(r.Stages, n)

	if err = eqs.Init(t, yT, tEnd); err != nil {
		return
	}
	if err = fcn(t, yT, fcnValue); err != nil {
		return
	}
	stat.EvaluationCount = 1
	stat.CurrentTime = t

	if len(r.handlers) > 0 {
		initial, mErr := mapper.MapStateAndDerivative(t, yT, fcnValue)
		if mErr != nil {
			err = mErr
			return
		}
		for _, h := range r.handlers {
			h.Init(initial, tEnd)
		}
	}

	if t == tEnd {
		return
	}

	// compute initial step size if not set
	stepEstimate := c.InitialStepSize
	if stepEstimate <= 0.0 {
		stepEstimate, err = ode.EstimateStepSize(fcn, t, yT, fcnValue, c, r.Order, forward)
		if err != nil {
			return
		}
		stat.EvaluationCount++
	}
	stepEstimate = math.Min(stepEstimate, c.MaxStepSize)

	var stepNext float64
	var last bool
	// repeat until tend
	for !last {
		// Set new step size
		stepNext = stepEstimate

		stat.StepCount++
		if remaining := direction * (tEnd - t); stepNext >= remaining {
			stepNext = remaining
			last = true
		}
		h := direction * stepNext

		// compute stages
		var stg, ic uint
		for stg = 1; stg < r.Stages; stg++ {
			tCurrent := t + h*r.c[stg]

			copy(yCurrent, yT)
			floats.AddScaled(yCurrent, h*r.a[stg][0], fcnValue)

			for ic = 1; ic < stg; ic++ {
				floats.AddScaled(yCurrent, h*r.a[stg][ic], ks[ic])
			}
			if err = fcn(tCurrent, yCurrent, ks[stg]); err != nil {
				return
			}
			stat.EvaluationCount++
		}

		// compute error estimate:
		floats.ScaleTo(yError, h*r.e[0], fcnValue)
		for stg = 1; stg < r.Stages; stg++ {
			floats.AddScaled(yError, h*r.e[stg], ks[stg])
		}

		// compute error quotient
		relativeError := 0.0
		for id := range yError {
			relativeError = relativeError + math.Pow(yError[id]/c.Tolerance(yT[id]), 2.0)
		}
		relativeError = math.Sqrt(relativeError / float64(n))

		// new stepsize estimate
		stepEstimate = 0.9 * math.Exp(-math.Log(1.0e-8+relativeError)/float64(r.Order))
		stepEstimate = stepNext * math.Max(0.2, math.Min(stepEstimate, 2.0)) // safety interval
		stepEstimate = math.Min(stepEstimate, c.MaxStepSize)

		// reject step
		if relativeError > 1.0 {
			stat.RejectedCount++
			last = false
			r.logger.Log("level", "debug", "event", "reject", "t", t, "h", h, "error", relativeError)

			// report failure, step size too small
			if stepEstimate < c.MinStepSize {
				err = fmt.Errorf("rk: %w at t=%g (%g < %g)", ode.ErrStepSizeTooSmall, t, stepEstimate, c.MinStepSize)
				break
			}
		} else {
			// accept step and compute new solution
			tPrevious := t
			copy(yPrevious, yT)
			copy(fcnPrevious, fcnValue)

			if last {
				t = tEnd
			} else {
				t += h
			}
			floats.AddScaled(yT, h*r.b[0], fcnValue)
			for stg = 1; stg < r.Stages; stg++ {
				floats.AddScaled(yT, h*r.b[stg], ks[stg])
			}

			if r.firstStageAsLast {
				copy(fcnValue, ks[r.Stages-1])
			} else {
				if err = fcn(t, yT, fcnValue); err != nil {
					return
				}
				stat.EvaluationCount++
			}
			stat.CurrentTime = t
			stat.LastStepSize = stepNext

			// cancel after first step
			if c.OneStepOnly {
				last = true
			}

			var stop bool
			stop, err = r.handleStep(mapper, forward, tPrevious, yPrevious, fcnPrevious, t, yT, fcnValue, last)
			if err != nil {
				break
			}
			if stop && !last {
				stat.Interrupted = true
				last = true
			}
		}
		// failure, too many steps
		if !last && stat.StepCount > c.MaxStepCount {
			err = fmt.Errorf("rk: %w (%d)", ode.ErrMaxStepCount, c.MaxStepCount)
			break
		}
	}

	stat.NextStepSize = stepEstimate

	if wErr := eqs.SetCompleteState(yT); wErr != nil && err == nil {
		err = wErr
	}
	if wErr := eqs.SetCompleteDerivative(fcnValue); wErr != nil && err == nil {
		err = wErr
	}
	eqs.SetTime(stat.CurrentTime)

	return
}

func (r *RK) handleStep(mapper *ode.EquationsMapper, forward bool, t0 float64, y0, f0 []float64, t1 float64, y1, f1 []float64, last bool) (stop bool, err error) {
	if len(r.handlers) == 0 {
		return false, nil
	}

	interpolator, err := ode.NewHermiteInterpolator(mapper, forward, t0, y0, f0, t1, y1, f1)
	if err != nil {
		return false, err
	}
	for _, h := range r.handlers {
		action, hErr := h.HandleStep(interpolator, last)
		if hErr != nil {
			return true, fmt.Errorf("rk: step handler: %w", hErr)
		}
		if action == ode.Stop {
			stop = true
		}
	}
	return stop, nil
}
