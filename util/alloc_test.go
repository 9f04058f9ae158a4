package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeRectangular(t *testing.T) {
	rect := MakeRectangular(3, 2)
	require.Len(t, rect, 3)
	for _, row := range rect {
		require.Equal(t, []float64{0, 0}, row)
	}

	rect[0] = append(rect[0], 7)
	require.Equal(t, []float64{0, 0}, rect[1])

	rect[2][1] = 5
	require.Equal(t, 5.0, rect[2][1])
	require.Zero(t, rect[1][1])

	require.Len(t, MakeSquare(4), 4)
	require.Len(t, MakeSquare(4)[3], 4)
	require.Empty(t, MakeRectangular(0, 3))
}

func TestArrayEpsEquals(t *testing.T) {
	require.True(t, ArrayEpsEquals([]float64{1, 2}, []float64{1 + 1e-9, 2}, 1e-8))
	require.False(t, ArrayEpsEquals([]float64{1, 2}, []float64{1, 2.1}, 1e-8))
	require.False(t, ArrayEpsEquals([]float64{1}, []float64{1, 2}, 1e-8))
}
