package ode

// State is an immutable snapshot of a composite ODE at one time.
//
// The getters hand out copies: callers own what they receive and may
// modify it without affecting the snapshot or other readers.
type State struct {
	time      float64
	primary   []float64
	secondary [][]float64
}

// NewState copies its arguments into a new snapshot.
func NewState(t float64, primary []float64, secondary ...[]float64) *State {
	s := &State{time: t, primary: clone(primary)}
	if len(secondary) > 0 {
		s.secondary = make([][]float64, len(secondary))
		for i := range secondary {
			s.secondary[i] = clone(secondary[i])
		}
	}
	return s
}

// Time returns the time of the snapshot.
func (s *State) Time() float64 {
	return s.time
}

// PrimaryStateDimension returns the dimension of the primary state.
func (s *State) PrimaryStateDimension() int {
	return len(s.primary)
}

// PrimaryState returns a copy of the primary state.
func (s *State) PrimaryState() []float64 {
	return clone(s.primary)
}

// NumberOfSecondaryStates returns the number of secondary blocks.
func (s *State) NumberOfSecondaryStates() int {
	return len(s.secondary)
}

// SecondaryStateDimension returns the dimension of block index, 0
// being the primary block. Unknown blocks have dimension 0.
func (s *State) SecondaryStateDimension(index int) int {
	return len(s.stateRef(index))
}

// SecondaryState returns a copy of block index, 0 being the primary
// block. It returns nil for unknown blocks.
func (s *State) SecondaryState(index int) []float64 {
	return clone(s.stateRef(index))
}

func (s *State) stateRef(index int) []float64 {
	if index == 0 {
		return s.primary
	}
	if index < 0 || index > len(s.secondary) {
		return nil
	}
	return s.secondary[index-1]
}

// StateAndDerivative is a State together with the derivatives at the
// same time. It follows the same copy-on-read contract.
type StateAndDerivative struct {
	State
	primaryDot   []float64
	secondaryDot [][]float64
}

// NewStateAndDerivative copies its arguments into a new snapshot.
// secondary and secondaryDot must have matching lengths.
func NewStateAndDerivative(t float64, primary, primaryDot []float64, secondary, secondaryDot [][]float64) *StateAndDerivative {
	s := &StateAndDerivative{
		State:      *NewState(t, primary, secondary...),
		primaryDot: clone(primaryDot),
	}
	if len(secondaryDot) > 0 {
		s.secondaryDot = make([][]float64, len(secondaryDot))
		for i := range secondaryDot {
			s.secondaryDot[i] = clone(secondaryDot[i])
		}
	}
	return s
}

// PrimaryDerivative returns a copy of the primary derivative.
func (s *StateAndDerivative) PrimaryDerivative() []float64 {
	return clone(s.primaryDot)
}

// SecondaryDerivative returns a copy of the derivative of block index,
// 0 being the primary block.
func (s *StateAndDerivative) SecondaryDerivative(index int) []float64 {
	return clone(s.derivativeRef(index))
}

func (s *StateAndDerivative) derivativeRef(index int) []float64 {
	if index == 0 {
		return s.primaryDot
	}
	if index < 0 || index > len(s.secondaryDot) {
		return nil
	}
	return s.secondaryDot[index-1]
}

func clone(a []float64) []float64 {
	if a == nil {
		return nil
	}
	c := make([]float64, len(a))
	copy(c, a)
	return c
}
