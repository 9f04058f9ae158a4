package dense

import (
	"math"
	"testing"

	"github.com/rollingthunder/multistep/ode"
	"github.com/rollingthunder/multistep/ode/adams"
	"github.com/rollingthunder/multistep/ode/rk"
	"github.com/stretchr/testify/require"
)

// step is a synthetic interpolator whose state is its own index.
type step struct {
	t0, t1 float64
	id     int
	dim    int
}

func (s *step) PreviousTime() float64 { return s.t0 }
func (s *step) CurrentTime() float64  { return s.t1 }
func (s *step) IsForward() bool       { return s.t1 >= s.t0 }

func (s *step) state(t float64) *ode.StateAndDerivative {
	y := make([]float64, s.dim)
	y[0] = float64(s.id)
	return ode.NewStateAndDerivative(t, y, make([]float64, s.dim), nil, nil)
}

func (s *step) PreviousState() *ode.StateAndDerivative { return s.state(s.t0) }
func (s *step) CurrentState() *ode.StateAndDerivative  { return s.state(s.t1) }

func (s *step) InterpolatedState(t float64) (*ode.StateAndDerivative, error) {
	return s.state(t), nil
}

func (s *step) Copy() ode.StepInterpolator { return s }

// table feeds n steps through times into a new model.
func table(t *testing.T, times []float64, firstID int) *Model {
	m := New()
	m.Init(nil, times[len(times)-1])
	for i := 0; i+1 < len(times); i++ {
		action, err := m.HandleStep(&step{t0: times[i], t1: times[i+1], id: firstID + i, dim: 1}, i+2 == len(times))
		require.NoError(t, err)
		require.Equal(t, ode.Continue, action)
	}
	return m
}

func uniform(n int, t0, dt float64) []float64 {
	times := make([]float64, n+1)
	for i := range times {
		times[i] = t0 + float64(i)*dt
	}
	return times
}

func requireStep(t *testing.T, m *Model, tt float64, k int) {
	require.NoError(t, m.SetInterpolatedTime(tt))
	require.Equal(t, k, m.index, "t=%g", tt)
	require.Equal(t, float64(k), m.InterpolatedState().PrimaryState()[0])
	require.Equal(t, tt, m.InterpolatedTime())
}

func TestSearchUniform(t *testing.T) {
	const n = 100
	for _, dt := range []float64{0.5, -0.5} {
		times := uniform(n, 3, dt)
		m := table(t, times, 0)
		require.Equal(t, n, m.Len())
		require.Equal(t, times[0], m.InitialTime())
		require.Equal(t, times[n], m.FinalTime())

		for k := 0; k < n; k++ {
			requireStep(t, m, times[k]+0.5*dt, k)
		}
		// in an order defeating the previous index
		for k := n - 1; k >= 0; k -= 7 {
			requireStep(t, m, times[k]+0.1*dt, k)
			requireStep(t, m, times[n-1-k]+0.9*dt, n-1-k)
		}

		requireStep(t, m, times[0]-10*dt, 0)
		requireStep(t, m, times[n]+10*dt, n-1)
	}
}

func TestSearchIrregular(t *testing.T) {
	// geometrically growing steps
	times := []float64{0}
	h := 1e-3
	for i := 0; i < 200; i++ {
		times = append(times, times[i]+h)
		h *= 1.05
	}
	m := table(t, times, 0)
	for k := 0; k < len(times)-1; k += 3 {
		requireStep(t, m, 0.5*(times[k]+times[k+1]), k)
	}
	for k := len(times) - 2; k >= 0; k -= 11 {
		requireStep(t, m, 0.5*(times[k]+times[k+1]), k)
	}
}

func TestSearchSmallTable(t *testing.T) {
	m := table(t, uniform(3, 0, 1), 0)
	requireStep(t, m, 1.5, 1)
	requireStep(t, m, 2.5, 2)
	requireStep(t, m, 0.5, 0)
}

func TestEmptyModel(t *testing.T) {
	m := New()
	require.ErrorIs(t, m.SetInterpolatedTime(1), ErrEmptyModel)
	require.True(t, math.IsNaN(m.InitialTime()))
	require.True(t, math.IsNaN(m.FinalTime()))
	require.Nil(t, m.InterpolatedState())
}

func TestAppend(t *testing.T) {
	first := table(t, uniform(10, 0, 1), 0)
	second := table(t, uniform(10, 10+1e-4, 1), 10)
	require.NoError(t, first.Append(second))
	require.Equal(t, 20, first.Len())
	require.Equal(t, second.FinalTime(), first.FinalTime())
	require.Equal(t, 0.0, first.InitialTime())
	requireStep(t, first, 15.5, 15)

	// empty models change nothing
	require.NoError(t, first.Append(New()))
	require.Equal(t, 20, first.Len())

	empty := New()
	require.NoError(t, empty.Append(second))
	require.Equal(t, second.InitialTime(), empty.InitialTime())
	require.Equal(t, second.FinalTime(), empty.FinalTime())
}

func TestAppendHole(t *testing.T) {
	first := table(t, uniform(10, 0, 1), 0)
	second := table(t, uniform(10, 10.01, 1), 10)
	require.ErrorIs(t, first.Append(second), ErrHoleBetweenModels)
	require.Equal(t, 10, first.Len())
}

func TestAppendDirection(t *testing.T) {
	first := table(t, uniform(10, 0, 1), 0)
	second := table(t, uniform(10, 10, -1), 10)
	require.ErrorIs(t, first.Append(second), ErrPropagationDirectionMismatch)
}

func TestAppendDimension(t *testing.T) {
	first := table(t, uniform(2, 0, 1), 0)
	second := New()
	_, err := second.HandleStep(&step{t0: 2, t1: 3, dim: 2}, true)
	require.NoError(t, err)
	require.ErrorIs(t, first.Append(second), ode.ErrDimensionMismatch)
}

func oscillator(t *testing.T) *ode.ExpandableODE {
	eqs, err := ode.NewExpandableODE(ode.Equations(2, func(t float64, y, dy []float64) {
		dy[0], dy[1] = y[1], -y[0]
	}))
	require.NoError(t, err)
	require.NoError(t, eqs.SetPrimaryState([]float64{0, 1}))
	return eqs
}

type stopAfter struct {
	steps, limit int
}

func (s *stopAfter) Init(*ode.StateAndDerivative, float64) { s.steps = 0 }

func (s *stopAfter) HandleStep(ode.StepInterpolator, bool) (ode.Action, error) {
	s.steps++
	if s.steps >= s.limit {
		return ode.Stop, nil
	}
	return ode.Continue, nil
}

func TestModelOfInterruptedIntegration(t *testing.T) {
	dopri, err := rk.NewRK(rk.DoPri5)
	require.NoError(t, err)
	ab, err := adams.NewBashforth(4, dopri)
	require.NoError(t, err)

	c := ode.Config{AbsoluteTolerance: 1e-10, RelativeTolerance: 1e-10, MaxStepSize: 0.05}
	for _, integrator := range []ode.Integrator{dopri, ab} {
		m := New()
		eqs := oscillator(t)
		integrator.AddStepHandler(m)
		integrator.AddStepHandler(&stopAfter{limit: 3})
		stat, err := integrator.Integrate(eqs, 10, &c)
		integrator.ClearStepHandlers()
		require.NoError(t, err)
		require.True(t, stat.Interrupted)

		name := integrator.Info().Name
		require.Equal(t, 3, m.Len(), name)
		require.Equal(t, 0.0, m.InitialTime(), name)
		require.Equal(t, eqs.Time(), m.FinalTime(), name)
		require.Less(t, m.FinalTime(), 10.0, name)

		require.NoError(t, m.SetInterpolatedTime(m.FinalTime()))
		require.Equal(t, 2, m.index, name)
		require.InDelta(t, eqs.PrimaryState()[0], m.InterpolatedState().PrimaryState()[0], 1e-9, name)
	}
}

func TestModelOfIntegrations(t *testing.T) {
	dopri, err := rk.NewRK(rk.DoPri5)
	require.NoError(t, err)
	ab, err := adams.NewBashforth(4, dopri)
	require.NoError(t, err)

	c := ode.Config{AbsoluteTolerance: 1e-10, RelativeTolerance: 1e-10, MaxStepSize: 0.05}
	for _, integrator := range []ode.Integrator{dopri, ab} {
		first, second := New(), New()
		eqs := oscillator(t)

		integrator.AddStepHandler(first)
		_, err = integrator.Integrate(eqs, 2, &c)
		require.NoError(t, err)
		integrator.ClearStepHandlers()

		integrator.AddStepHandler(second)
		_, err = integrator.Integrate(eqs, 4, &c)
		require.NoError(t, err)
		integrator.ClearStepHandlers()

		require.NoError(t, first.Append(second))
		require.Equal(t, 0.0, first.InitialTime())
		require.Equal(t, 4.0, first.FinalTime())

		for tt := 0.0; tt <= 4; tt += 0.013 {
			require.NoError(t, first.SetInterpolatedTime(tt))
			y := first.InterpolatedState().PrimaryState()
			require.InDelta(t, math.Sin(tt), y[0], 1e-6, "%s t=%g", integrator.Info().Name, tt)
			require.InDelta(t, math.Cos(tt), y[1], 1e-6, "%s t=%g", integrator.Info().Name, tt)
		}
	}
}
