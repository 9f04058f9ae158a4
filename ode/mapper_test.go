package ode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapperLayout(t *testing.T) {
	primary, err := NewEquationsMapper(nil, 3)
	require.NoError(t, err)
	m, err := NewEquationsMapper(primary, 2)
	require.NoError(t, err)

	require.Equal(t, []int{0, 3, 5}, m.start)
	require.Equal(t, 5, m.TotalDimension())
	require.Equal(t, 2, m.NumberOfEquations())
	require.Equal(t, 3, m.BlockDimension(0))
	require.Equal(t, 2, m.BlockDimension(1))
	require.Equal(t, 0, m.BlockDimension(2))

	// extending does not touch the previous mapper
	require.Equal(t, []int{0, 3}, primary.start)
	require.Equal(t, 3, primary.TotalDimension())

	block, err := m.ExtractEquationData(1, []float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Equal(t, []float64{4, 5}, block)
}

func TestMapperRoundTrip(t *testing.T) {
	m, err := NewEquationsMapper(nil, 2)
	require.NoError(t, err)
	for _, dim := range []int{3, 1, 4} {
		m, err = NewEquationsMapper(m, dim)
		require.NoError(t, err)
	}

	full := make([]float64, m.TotalDimension())
	for i := range full {
		full[i] = float64(i + 1)
	}
	for index := 0; index < m.NumberOfEquations(); index++ {
		other := make([]float64, len(full))
		for i := range other {
			other[i] = -1
		}

		block, err := m.ExtractEquationData(index, full)
		require.NoError(t, err)
		require.NoError(t, m.InsertEquationData(index, block, other))

		for i := range other {
			if i >= m.start[index] && i < m.start[index+1] {
				require.Equal(t, full[i], other[i])
			} else {
				require.Equal(t, -1.0, other[i])
			}
		}
	}
}

func TestMapperErrors(t *testing.T) {
	_, err := NewEquationsMapper(nil, 0)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	m, err := NewEquationsMapper(nil, 3)
	require.NoError(t, err)
	m, err = NewEquationsMapper(m, 2)
	require.NoError(t, err)

	_, err = m.ExtractEquationData(2, make([]float64, 5))
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = m.ExtractEquationData(-1, make([]float64, 5))
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = m.ExtractEquationData(1, make([]float64, 4))
	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	require.Equal(t, 4, dimErr.Actual)
	require.Equal(t, 5, dimErr.Expected)

	require.ErrorIs(t, m.InsertEquationData(1, []float64{1}, make([]float64, 5)), ErrDimensionMismatch)
	require.ErrorIs(t, m.InsertEquationData(1, []float64{1, 2}, make([]float64, 4)), ErrDimensionMismatch)
	require.ErrorIs(t, m.InsertEquationData(3, []float64{1, 2}, make([]float64, 5)), ErrIndexOutOfRange)
}

func TestMapStateAndDerivative(t *testing.T) {
	m, err := NewEquationsMapper(nil, 2)
	require.NoError(t, err)
	m, err = NewEquationsMapper(m, 1)
	require.NoError(t, err)

	y := []float64{1, 2, 3}
	yDot := []float64{4, 5, 6}
	s, err := m.MapStateAndDerivative(0.5, y, yDot)
	require.NoError(t, err)
	require.Equal(t, 0.5, s.Time())
	require.Equal(t, []float64{1, 2}, s.PrimaryState())
	require.Equal(t, []float64{3}, s.SecondaryState(1))
	require.Equal(t, []float64{6}, s.SecondaryDerivative(1))

	// the snapshot does not alias the arrays
	y[0] = 100
	require.Equal(t, []float64{1, 2}, s.PrimaryState())

	back, err := m.MapState(&s.State)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, back)
	backDot, err := m.MapDerivative(s)
	require.NoError(t, err)
	require.Equal(t, yDot, backDot)

	_, err = m.MapStateAndDerivative(0, []float64{1, 2}, yDot)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = m.MapState(NewState(0, []float64{1, 2}))
	require.ErrorIs(t, err, ErrDimensionMismatch)
}
