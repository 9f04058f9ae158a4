package rk

import (
	"math"
	"testing"

	. "github.com/rollingthunder/multistep/ode"
	. "github.com/rollingthunder/multistep/ode/testing"
	"github.com/rollingthunder/multistep/problems"
	"github.com/rollingthunder/multistep/util"
	"github.com/stretchr/testify/require"
)

func TestAllRK(t *testing.T) {
	if testing.Short() {
		t.Skipf("Skipping because we're running in short test mode.")
	}

	integrators := make([]Integrator, NumberOfRKMethods)
	for j := 0; j < int(NumberOfRKMethods); j++ {
		rk, err := NewRK(RKMethod(j))
		if err != nil {
			t.Errorf("Couldn't create RK Method %d: %s", j, err.Error())
		} else {
			integrators[j] = rk
		}
	}

	RunIntegratorTests(t, integrators, 4)
}

func TestUnknownMethod(t *testing.T) {
	_, err := NewRK(RKMethod(NumberOfRKMethods))
	require.Error(t, err)
}

type stopper struct {
	steps, stopAfter int
	initial          float64
}

func (s *stopper) Init(initial *StateAndDerivative, finalTime float64) {
	s.initial = initial.Time()
}

func (s *stopper) HandleStep(interpolator StepInterpolator, isLast bool) (Action, error) {
	s.steps++
	if s.steps == s.stopAfter {
		return Stop, nil
	}
	return Continue, nil
}

func oscillator(t *testing.T) *ExpandableODE {
	eqs, err := NewExpandableODE(Equations(2, func(t float64, y, dy []float64) {
		dy[0], dy[1] = y[1], -y[0]
	}))
	require.NoError(t, err)
	require.NoError(t, eqs.SetPrimaryState([]float64{0, 1}))
	return eqs
}

func TestRKHandlerStop(t *testing.T) {
	dopri, err := NewRK(DoPri5)
	require.NoError(t, err)
	eqs := oscillator(t)
	s := &stopper{stopAfter: 3}
	dopri.AddStepHandler(s)

	stat, err := dopri.Integrate(eqs, 10, &Config{MaxStepSize: 0.1, AbsoluteTolerance: 1e-10, RelativeTolerance: 1e-10})
	require.NoError(t, err)
	require.True(t, stat.Interrupted)
	require.Equal(t, 3, s.steps)
	require.Equal(t, 0.0, s.initial)
	require.Less(t, eqs.Time(), 0.31)
	require.InDelta(t, math.Sin(eqs.Time()), eqs.PrimaryState()[0], 1e-6)

	dopri.ClearStepHandlers()
	_, err = dopri.Integrate(eqs, 1, &Config{})
	require.NoError(t, err)
	require.Equal(t, 3, s.steps)
}

func TestRKBackward(t *testing.T) {
	dopri, err := NewRK(DoPri5)
	require.NoError(t, err)
	eqs := oscillator(t)

	stat, err := dopri.Integrate(eqs, -2, &Config{AbsoluteTolerance: 1e-9, RelativeTolerance: 1e-9})
	require.NoError(t, err)
	require.Equal(t, -2.0, stat.CurrentTime)
	require.InDelta(t, math.Sin(-2), eqs.PrimaryState()[0], 1e-7)
	require.InDelta(t, math.Cos(-2), eqs.PrimaryState()[1], 1e-7)
	require.InDelta(t, math.Cos(-2), eqs.PrimaryStateDot()[0], 1e-7)
}

func TestRKHermiteInterpolation(t *testing.T) {
	dopri, err := NewRK(DoPri5)
	require.NoError(t, err)
	eqs := oscillator(t)

	var worst float64
	dopri.AddStepHandler(handlerFunc(func(i StepInterpolator, isLast bool) (Action, error) {
		mid := 0.5 * (i.PreviousTime() + i.CurrentTime())
		s, err := i.InterpolatedState(mid)
		if err != nil {
			return Stop, err
		}
		worst = math.Max(worst, math.Abs(s.PrimaryState()[0]-math.Sin(mid)))
		return Continue, nil
	}))

	_, err = dopri.Integrate(eqs, 3, &Config{MaxStepSize: 0.05, AbsoluteTolerance: 1e-10, RelativeTolerance: 1e-10})
	require.NoError(t, err)
	require.Less(t, worst, 1e-6)
}

func TestRKMaxStepCount(t *testing.T) {
	rk2, err := NewRK(RK2)
	require.NoError(t, err)
	_, err = rk2.Integrate(oscillator(t), 10, &Config{MaxStepSize: 0.01, MaxStepCount: 5})
	require.ErrorIs(t, err, ErrMaxStepCount)
}

func TestRKInvalidConfig(t *testing.T) {
	rk2, err := NewRK(RK2)
	require.NoError(t, err)
	_, err = rk2.Integrate(oscillator(t), 10, &Config{AbsoluteTolerance: -1})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRKConfigReused(t *testing.T) {
	dopri, err := NewRK(DoPri5)
	require.NoError(t, err)

	shared := Config{AbsoluteTolerance: 1e-8}
	_, err = dopri.Integrate(oscillator(t), 0.1, &shared)
	require.NoError(t, err)
	require.Equal(t, Config{AbsoluteTolerance: 1e-8}, shared)

	// the first span must not limit the steps of the second integration
	reused, fresh := oscillator(t), oscillator(t)
	_, err = dopri.Integrate(reused, 5, &shared)
	require.NoError(t, err)
	_, err = dopri.Integrate(fresh, 5, &Config{AbsoluteTolerance: 1e-8})
	require.NoError(t, err)
	require.True(t, util.ArrayEpsEquals(fresh.CompleteState(), reused.CompleteState(), 1e-15))
}

func TestRKMBody4h(t *testing.T) {
	dopri, err := NewRK(DoPri5)
	require.NoError(t, err)
	mbody := problems.NewMBody(4)
	eqs, err := NewExpandableODE(mbody)
	require.NoError(t, err)
	require.NoError(t, eqs.SetPrimaryState(mbody.Initialize()))

	config := Config{
		AbsoluteTolerance: 1.e-5,
		RelativeTolerance: 1.e-5,
	}
	t0, te := 0.0, 0.1
	eqs.SetTime(t0)

	stat, err := dopri.Integrate(eqs, te, &config)

	if err != nil {
		t.Fatalf("Integration failed - %s", err.Error())
	}

	if testing.Verbose() {
		t.Logf("MBody: %d steps, %d rejected, %d evaluations", stat.StepCount, stat.RejectedCount, stat.EvaluationCount)
		t.Logf("MBody: result[0..10] = %f", eqs.PrimaryState()[:10])
	}
}

type handlerFunc func(StepInterpolator, bool) (Action, error)

func (f handlerFunc) Init(*StateAndDerivative, float64) {}

func (f handlerFunc) HandleStep(i StepInterpolator, isLast bool) (Action, error) {
	return f(i, isLast)
}
