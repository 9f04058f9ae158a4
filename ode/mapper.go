package ode

import "fmt"

// EquationsMapper describes where the blocks of a composite ODE live
// inside the flat complete state array. Block 0 is the primary
// equation set, blocks 1..n-1 are the secondary ones in registration
// order. A mapper is immutable: extending it creates a new mapper and
// the previous one stays a valid view of the smaller layout.
type EquationsMapper struct {
	// start[i] is the offset of block i, start[n] the total dimension
	start []int
}

// NewEquationsMapper returns a mapper with one more block of the given
// dimension than previous. A nil previous mapper creates the layout of
// the primary equations alone.
func NewEquationsMapper(previous *EquationsMapper, dimension int) (*EquationsMapper, error) {
	if dimension <= 0 {
		return nil, &DimensionError{What: "equations block", Actual: dimension, Expected: 1}
	}

	var start []int
	if previous == nil {
		start = []int{0, dimension}
	} else {
		n := len(previous.start)
		start = make([]int, n+1)
		copy(start, previous.start)
		start[n] = start[n-1] + dimension
	}
	return &EquationsMapper{start: start}, nil
}

// NumberOfEquations returns the number of blocks, primary included.
func (m *EquationsMapper) NumberOfEquations() int {
	return len(m.start) - 1
}

// TotalDimension returns the size of the complete state array.
func (m *EquationsMapper) TotalDimension() int {
	return m.start[len(m.start)-1]
}

// BlockDimension returns the dimension of block index, or 0 if the
// index does not exist.
func (m *EquationsMapper) BlockDimension(index int) int {
	if index < 0 || index >= m.NumberOfEquations() {
		return 0
	}
	return m.start[index+1] - m.start[index]
}

func (m *EquationsMapper) checkIndex(index int) error {
	if index < 0 || index > m.NumberOfEquations()-1 {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, m.NumberOfEquations()-1)
	}
	return nil
}

// ExtractEquationData copies block index out of the complete array.
func (m *EquationsMapper) ExtractEquationData(index int, complete []float64) ([]float64, error) {
	if err := m.checkIndex(index); err != nil {
		return nil, err
	}
	begin, end := m.start[index], m.start[index+1]
	if len(complete) < end {
		return nil, &DimensionError{What: "complete state", Actual: len(complete), Expected: end}
	}

	block := make([]float64, end-begin)
	copy(block, complete[begin:end])
	return block, nil
}

// InsertEquationData writes block into the slice of complete that
// belongs to block index.
func (m *EquationsMapper) InsertEquationData(index int, block, complete []float64) error {
	if err := m.checkIndex(index); err != nil {
		return err
	}
	begin, end := m.start[index], m.start[index+1]
	if err := CheckDimension(fmt.Sprintf("equations block %d", index), len(block), end-begin); err != nil {
		return err
	}
	if len(complete) < end {
		return &DimensionError{What: "complete state", Actual: len(complete), Expected: end}
	}

	copy(complete[begin:end], block)
	return nil
}

// MapStateAndDerivative splits complete state and derivative arrays
// into a snapshot.
func (m *EquationsMapper) MapStateAndDerivative(t float64, y, yDot []float64) (*StateAndDerivative, error) {
	n := m.TotalDimension()
	if err := CheckDimension("complete state", len(y), n); err != nil {
		return nil, err
	}
	if err := CheckDimension("complete derivative", len(yDot), n); err != nil {
		return nil, err
	}

	blocks := m.NumberOfEquations()
	secondary := make([][]float64, blocks-1)
	secondaryDot := make([][]float64, blocks-1)
	for index := 1; index < blocks; index++ {
		secondary[index-1] = y[m.start[index]:m.start[index+1]]
		secondaryDot[index-1] = yDot[m.start[index]:m.start[index+1]]
	}

	return NewStateAndDerivative(t, y[:m.start[1]], yDot[:m.start[1]], secondary, secondaryDot), nil
}

// MapState assembles the complete state array of a snapshot.
func (m *EquationsMapper) MapState(s *State) ([]float64, error) {
	if err := CheckDimension("secondary states", s.NumberOfSecondaryStates()+1, m.NumberOfEquations()); err != nil {
		return nil, err
	}
	y := make([]float64, m.TotalDimension())
	for index := 0; index < m.NumberOfEquations(); index++ {
		if err := m.InsertEquationData(index, s.stateRef(index), y); err != nil {
			return nil, err
		}
	}
	return y, nil
}

// MapDerivative assembles the complete derivative array of a snapshot.
func (m *EquationsMapper) MapDerivative(s *StateAndDerivative) ([]float64, error) {
	if err := CheckDimension("secondary derivatives", s.NumberOfSecondaryStates()+1, m.NumberOfEquations()); err != nil {
		return nil, err
	}
	yDot := make([]float64, m.TotalDimension())
	for index := 0; index < m.NumberOfEquations(); index++ {
		if err := m.InsertEquationData(index, s.derivativeRef(index), yDot); err != nil {
			return nil, err
		}
	}
	return yDot, nil
}
