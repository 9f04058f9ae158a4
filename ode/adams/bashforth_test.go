package adams

import (
	"errors"
	"math"
	"testing"

	. "github.com/rollingthunder/multistep/ode"
	"github.com/rollingthunder/multistep/ode/rk"
	. "github.com/rollingthunder/multistep/ode/testing"
	"github.com/rollingthunder/multistep/problems"
	"github.com/rollingthunder/multistep/util"
	"github.com/stretchr/testify/require"
)

func newBashforth(t testing.TB, nSteps int) *Bashforth {
	starter, err := rk.NewRK(rk.DoPri5)
	require.NoError(t, err)
	ab, err := NewBashforth(nSteps, starter)
	require.NoError(t, err)
	return ab
}

func decay(t *testing.T, t0, y0 float64) *ExpandableODE {
	eqs, err := NewExpandableODE(Equations(1, func(t float64, y, dy []float64) {
		dy[0] = -y[0]
	}))
	require.NoError(t, err)
	eqs.SetTime(t0)
	require.NoError(t, eqs.SetPrimaryState([]float64{y0}))
	return eqs
}

type countingHandler struct {
	steps, stopAfter int
	err              error
	last             bool
	previousEnd      float64
	contiguous       bool
}

func (c *countingHandler) Init(initial *StateAndDerivative, finalTime float64) {
	c.steps, c.previousEnd, c.contiguous = 0, initial.Time(), true
}

func (c *countingHandler) HandleStep(interpolator StepInterpolator, isLast bool) (Action, error) {
	c.steps++
	c.last = isLast
	if interpolator.PreviousTime() != c.previousEnd {
		c.contiguous = false
	}
	c.previousEnd = interpolator.CurrentTime()
	if c.err != nil {
		return Stop, c.err
	}
	if c.stopAfter > 0 && c.steps >= c.stopAfter {
		return Stop, nil
	}
	return Continue, nil
}

func TestAllBashforth(t *testing.T) {
	if testing.Short() {
		t.Skipf("Skipping because we're running in short test mode.")
	}

	integrators := make([]Integrator, 0, 4)
	for nSteps := 2; nSteps <= 5; nSteps++ {
		integrators = append(integrators, newBashforth(t, nSteps))
	}

	RunIntegratorTests(t, integrators, 4)
}

func TestNewBashforthTooFewSteps(t *testing.T) {
	_, err := NewBashforth(1, nil)
	require.ErrorIs(t, err, ErrTooFewSteps)
}

func TestBashforthDecay(t *testing.T) {
	for _, forward := range []bool{true, false} {
		ab := newBashforth(t, 4)
		t0, te, y0 := 0.0, 5.0, 1.0
		if !forward {
			t0, te, y0 = te, t0, math.Exp(-5)
		}
		eqs := decay(t, t0, y0)

		handler := &countingHandler{}
		ab.AddStepHandler(handler)
		stat, err := ab.Integrate(eqs, te, &Config{AbsoluteTolerance: 1e-10, RelativeTolerance: 1e-10})
		require.NoError(t, err)

		require.Equal(t, te, eqs.Time())
		require.Equal(t, te, stat.CurrentTime)
		require.InDelta(t, math.Exp(-te), eqs.PrimaryState()[0], 1e-7, "forward=%v", forward)
		require.InDelta(t, -math.Exp(-te), eqs.PrimaryStateDot()[0], 1e-7, "forward=%v", forward)

		require.Equal(t, int(stat.StepCount), handler.steps)
		require.True(t, handler.last)
		require.True(t, handler.contiguous)
		require.Greater(t, stat.EvaluationCount, stat.StepCount)
		require.Equal(t, te, handler.previousEnd)
	}
}

func TestBashforthHandlerStop(t *testing.T) {
	ab := newBashforth(t, 3)
	eqs := decay(t, 0, 1)
	handler := &countingHandler{stopAfter: 5}
	ab.AddStepHandler(handler)

	stat, err := ab.Integrate(eqs, 100, &Config{MaxStepSize: 0.1})
	require.NoError(t, err)
	require.True(t, stat.Interrupted)
	require.Equal(t, uint(5), stat.StepCount)
	require.Equal(t, 5, handler.steps)
	require.Less(t, eqs.Time(), 100.0)
	require.Equal(t, handler.previousEnd, eqs.Time())
	require.InDelta(t, math.Exp(-eqs.Time()), eqs.PrimaryState()[0], 1e-3)
}

func TestBashforthHandlerError(t *testing.T) {
	ab := newBashforth(t, 3)
	failure := errors.New("handler failed")
	ab.AddStepHandler(&countingHandler{err: failure})

	stat, err := ab.Integrate(decay(t, 0, 1), 1, &Config{})
	require.ErrorIs(t, err, failure)
	require.Equal(t, uint(1), stat.StepCount)
}

func TestBashforthOneStepOnly(t *testing.T) {
	ab := newBashforth(t, 2)
	eqs := decay(t, 0, 1)
	stat, err := ab.Integrate(eqs, 10, &Config{MaxStepSize: 0.5, OneStepOnly: true})
	require.NoError(t, err)
	require.Equal(t, uint(1), stat.StepCount)
	require.Less(t, eqs.Time(), 10.0)
}

func TestBashforthStarterStoppedEarly(t *testing.T) {
	ab := newBashforth(t, 4)
	// the starter covers the whole interval in a single step
	_, err := ab.Integrate(decay(t, 0, 1), 1e-3, &Config{InitialStepSize: 1})
	require.ErrorIs(t, err, ErrStarterStoppedEarly)
}

func TestBashforthMaxStepCount(t *testing.T) {
	ab := newBashforth(t, 2)
	_, err := ab.Integrate(decay(t, 0, 1), 10, &Config{MaxStepSize: 0.01, MaxStepCount: 10})
	require.ErrorIs(t, err, ErrMaxStepCount)
}

func TestBashforthConfigReused(t *testing.T) {
	ab := newBashforth(t, 3)

	shared := Config{AbsoluteTolerance: 1e-8}
	_, err := ab.Integrate(decay(t, 0, 1), 0.5, &shared)
	require.NoError(t, err)
	require.Equal(t, Config{AbsoluteTolerance: 1e-8}, shared)

	reused, fresh := decay(t, 0, 1), decay(t, 0, 1)
	_, err = ab.Integrate(reused, 10, &shared)
	require.NoError(t, err)
	_, err = ab.Integrate(fresh, 10, &Config{AbsoluteTolerance: 1e-8})
	require.NoError(t, err)
	require.True(t, util.ArrayEpsEquals(fresh.CompleteState(), reused.CompleteState(), 1e-15))
	require.InDelta(t, math.Exp(-10), reused.PrimaryState()[0], 1e-5)
}

func TestBashforthMBody(t *testing.T) {
	ab := newBashforth(t, 4)
	mbody := problems.NewMBody(4)
	eqs, err := NewExpandableODE(mbody)
	require.NoError(t, err)
	require.NoError(t, eqs.SetPrimaryState(mbody.Initialize()))

	stat, err := ab.Integrate(eqs, 0.1, &Config{AbsoluteTolerance: 1e-5, RelativeTolerance: 1e-5})
	require.NoError(t, err)
	require.Equal(t, 0.1, eqs.Time())

	if testing.Verbose() {
		t.Logf("MBody: %d steps, %d rejected, %d evaluations", stat.StepCount, stat.RejectedCount, stat.EvaluationCount)
	}
}

func BenchmarkBashforthBruss2D(b *testing.B) {
	ab := newBashforth(b, 4)
	bruss := problems.NewBruss2D(10)
	y0 := bruss.Initialize()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		eqs, _ := NewExpandableODE(bruss)
		eqs.SetPrimaryState(y0)
		ab.Integrate(eqs, 1.0, &Config{})
	}
}
