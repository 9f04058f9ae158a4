package adams

import (
	"fmt"
	"math"

	"github.com/rollingthunder/multistep/ode"
	"github.com/rollingthunder/multistep/ode/multistep"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Bashforth is the explicit Adams-Bashforth method in Nordsieck form.
// With nSteps points it is of order nSteps. The local error is
// estimated from the last Nordsieck row, so no extra evaluation is
// needed: every step costs one derivative evaluation.
type Bashforth struct {
	*multistep.Integrator
	transformer *Transformer
}

// NewBashforth returns an Adams-Bashforth integrator using nSteps
// points, starting with the given single step integrator.
func NewBashforth(nSteps int, starter ode.Integrator) (*Bashforth, error) {
	transformer, err := NewTransformer(nSteps)
	if err != nil {
		return nil, err
	}
	info := ode.IntegratorInfo{
		Name:   fmt.Sprintf("Adams-Bashforth(%d)", nSteps),
		Stages: 1,
		Order:  uint(nSteps),
	}
	core, err := multistep.New(info, nSteps, starter, transformer)
	if err != nil {
		return nil, err
	}
	return &Bashforth{Integrator: core, transformer: transformer}, nil
}

// Integrate advances eqs to tEnd. config is not modified.
func (b *Bashforth) Integrate(eqs *ode.ExpandableODE, tEnd float64, config *ode.Config) (stat ode.Statistics, err error) {
	stepStart := eqs.Time()
	prepared := *config
	c := &prepared
	if err = c.ValidateAndPrepare(stepStart, tEnd); err != nil {
		return
	}

	mapper := eqs.Mapper()
	primaryDim := mapper.BlockDimension(0)
	forward := tEnd >= stepStart
	logger := b.Logger()

	y := eqs.CompleteState()
	yDot := make([]float64, len(y))
	if err = eqs.Init(stepStart, y, tEnd); err != nil {
		return
	}
	if err = eqs.ComputeDerivatives(stepStart, y, yDot); err != nil {
		return
	}
	stat.EvaluationCount = 1
	stat.CurrentTime = stepStart

	previous, err := mapper.MapStateAndDerivative(stepStart, y, yDot)
	if err != nil {
		return
	}
	handlers := b.StepHandlers()
	for _, h := range handlers {
		h.Init(previous, tEnd)
	}
	if stepStart == tEnd {
		return
	}

	evaluations, err := b.Start(eqs, tEnd, c)
	stat.EvaluationCount += evaluations
	if err != nil {
		return
	}

	// reuse the step size found by the starter
	hNew := b.StepSize()
	last := false
	if remaining := tEnd - stepStart; math.Abs(hNew) >= math.Abs(remaining) {
		hNew = remaining
		last = true
	}
	b.Rescale(hNew)

	for {
		stepSize := b.StepSize()

		// error estimate from the last term of the Taylor expansion
		var estimate float64
		for {
			nordsieck := b.NordsieckMatrix()
			lastRow, _ := nordsieck.Dims()
			estimate = 0
			for i := 0; i < primaryDim; i++ {
				ratio := nordsieck.At(lastRow-1, i) / c.Tolerance(y[i])
				estimate += ratio * ratio
			}
			estimate = math.Sqrt(estimate / float64(primaryDim))
			if estimate < 1 {
				break
			}

			stat.RejectedCount++
			factor := b.ComputeStepGrowShrinkFactor(estimate)
			logger.Log("level", "debug", "event", "reject", "t", stepStart, "h", stepSize, "error", estimate)
			if hNew, err = b.FilterStep(stepSize*factor, forward, false, c); err != nil {
				err = fmt.Errorf("adams: at t=%g: %w", stepStart, err)
				return
			}
			last = false
			b.Rescale(hNew)
			stepSize = hNew
		}

		stepEnd := stepStart + stepSize
		if last {
			stepEnd = tEnd
		}

		// predict the state at step end
		scaled := b.ScaledDerivative()
		nordsieck := b.NordsieckMatrix()
		yEnd := make([]float64, len(y))
		floats.AddTo(yEnd, y, scaled)
		rows, _ := nordsieck.Dims()
		for i := 0; i < rows; i++ {
			floats.Add(yEnd, nordsieck.RawRowView(i))
		}

		yDotEnd := make([]float64, len(y))
		if err = eqs.ComputeDerivatives(stepEnd, yEnd, yDotEnd); err != nil {
			return
		}
		stat.EvaluationCount++
		stat.StepCount++

		// update the Nordsieck vector
		predictedScaled := make([]float64, len(y))
		floats.ScaleTo(predictedScaled, stepSize, yDotEnd)
		next := b.transformer.UpdateHighOrderDerivativesPhase1(nordsieck)
		b.transformer.UpdateHighOrderDerivativesPhase2(scaled, predictedScaled, next)

		current, mErr := mapper.MapStateAndDerivative(stepEnd, yEnd, yDotEnd)
		if mErr != nil {
			err = mErr
			return
		}
		b.Update(stepSize, predictedScaled, next)
		stepStart, y, yDot = stepEnd, yEnd, yDotEnd
		stat.CurrentTime = stepStart
		stat.LastStepSize = math.Abs(stepSize)

		if c.OneStepOnly {
			last = true
		}

		stop, hErr := b.handleStep(handlers, mapper, forward, previous, current, stepSize, predictedScaled, next, last)
		if hErr != nil {
			err = hErr
			break
		}
		previous = current
		if stop && !last {
			stat.Interrupted = true
			last = true
		}
		if last {
			break
		}

		if stat.StepCount >= c.MaxStepCount {
			err = fmt.Errorf("adams: %w (%d)", ode.ErrMaxStepCount, c.MaxStepCount)
			break
		}

		// step size control for the next step
		scaledH := stepSize * b.ComputeStepGrowShrinkFactor(estimate)
		nextIsLast := reaches(stepStart+scaledH, tEnd, forward)
		if hNew, err = b.FilterStep(scaledH, forward, nextIsLast, c); err != nil {
			err = fmt.Errorf("adams: at t=%g: %w", stepStart, err)
			break
		}
		if reaches(stepStart+hNew, tEnd, forward) {
			hNew = tEnd - stepStart
			last = true
		}
		b.Rescale(hNew)
	}

	stat.NextStepSize = math.Abs(b.StepSize())

	if wErr := eqs.SetCompleteState(y); wErr != nil && err == nil {
		err = wErr
	}
	if wErr := eqs.SetCompleteDerivative(yDot); wErr != nil && err == nil {
		err = wErr
	}
	eqs.SetTime(stepStart)
	return
}

func reaches(t, tEnd float64, forward bool) bool {
	if forward {
		return t >= tEnd
	}
	return t <= tEnd
}

func (b *Bashforth) handleStep(handlers []ode.StepHandler, mapper *ode.EquationsMapper, forward bool,
	previous, current *ode.StateAndDerivative, h float64, scaled []float64, nordsieck *mat.Dense, last bool) (stop bool, err error) {
	if len(handlers) == 0 {
		return false, nil
	}

	interpolator, err := multistep.NewNordsieckInterpolator(mapper, forward, previous, current, h, scaled, nordsieck)
	if err != nil {
		return false, err
	}
	for _, handler := range handlers {
		action, hErr := handler.HandleStep(interpolator, last)
		if hErr != nil {
			return true, fmt.Errorf("adams: step handler: %w", hErr)
		}
		if action == ode.Stop {
			stop = true
		}
	}
	return stop, nil
}
