package problems

import (
	"testing"

	"github.com/rollingthunder/multistep/ode"
	"github.com/stretchr/testify/require"
)

func TestConstructor(t *testing.T) {
	b := NewBruss2D(20).(*brusselator)
	if b.a != 3.4 {
		t.Error("Wrong Constant")
	}
	require.Equal(t, 800, b.Dimension())
}

func TestBrussUniformFieldHasNoDiffusion(t *testing.T) {
	b := NewBruss2D(5)
	y := make([]float64, b.Dimension())
	for i := 0; i < len(y); i += 2 {
		y[i], y[i+1] = 1.5, 2.5
	}
	dy := make([]float64, len(y))
	require.NoError(t, b.ComputeDerivatives(0, y, dy))

	// only the reaction terms remain
	uvv := 1.5 * 1.5 * 2.5
	for i := 0; i < len(y); i += 2 {
		require.InDelta(t, 1.0+uvv-4.4*1.5, dy[i], 1e-12)
		require.InDelta(t, 3.4*1.5-uvv, dy[i+1], 1e-12)
	}
}

func TestBrussDimensionMismatch(t *testing.T) {
	b := NewBruss2D(3)
	err := b.ComputeDerivatives(0, make([]float64, 4), make([]float64, 4))
	require.ErrorIs(t, err, ode.ErrDimensionMismatch)
}
