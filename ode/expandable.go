package ode

import "fmt"

// ExpandableODE composes a primary differential equation with any
// number of secondary equation sets into one flat state vector.
//
// It also carries the current time and state of the composite problem:
// integrators start from them and write the final values back.
// Scratch buffers are reused between calls, so an instance must not
// evaluate derivatives concurrently.
type ExpandableODE struct {
	primary         Primary
	mapper          *EquationsMapper
	components      []*secondaryComponent
	time            float64
	primaryState    []float64
	primaryStateDot []float64
}

type secondaryComponent struct {
	equations Secondary
	state     []float64
	stateDot  []float64
	// scratch holds the block of the state being differentiated
	scratch []float64
}

// NewExpandableODE returns a composite ODE holding only primary.
func NewExpandableODE(primary Primary) (*ExpandableODE, error) {
	mapper, err := NewEquationsMapper(nil, primary.Dimension())
	if err != nil {
		return nil, fmt.Errorf("primary equations: %w", err)
	}
	n := primary.Dimension()
	return &ExpandableODE{
		primary:         primary,
		mapper:          mapper,
		primaryState:    make([]float64, n),
		primaryStateDot: make([]float64, n),
	}, nil
}

// Primary returns the primary equations.
func (e *ExpandableODE) Primary() Primary {
	return e.primary
}

// Mapper returns the layout of the complete state as of now.
func (e *ExpandableODE) Mapper() *EquationsMapper {
	return e.mapper
}

// TotalDimension returns the dimension of the complete state.
func (e *ExpandableODE) TotalDimension() int {
	return e.mapper.TotalDimension()
}

// AddSecondaryEquations appends a secondary set and returns its block
// index. Indices start at 1, 0 being the primary block.
func (e *ExpandableODE) AddSecondaryEquations(s Secondary) (int, error) {
	mapper, err := NewEquationsMapper(e.mapper, s.Dimension())
	if err != nil {
		return 0, fmt.Errorf("secondary equations: %w", err)
	}
	e.mapper = mapper
	e.components = append(e.components, &secondaryComponent{
		equations: s,
		state:     make([]float64, s.Dimension()),
		stateDot:  make([]float64, s.Dimension()),
		scratch:   make([]float64, s.Dimension()),
	})
	return len(e.components), nil
}

// Init forwards the start of an integration to the primary equations
// and then to every secondary set in registration order.
func (e *ExpandableODE) Init(t0 float64, y0 []float64, finalTime float64) error {
	if err := CheckDimension("complete state", len(y0), e.TotalDimension()); err != nil {
		return err
	}

	primary0, err := e.mapper.ExtractEquationData(0, y0)
	if err != nil {
		return err
	}
	if init, ok := e.primary.(PrimaryInitializer); ok {
		init.Init(t0, primary0, finalTime)
	}

	for i, c := range e.components {
		secondary0, err := e.mapper.ExtractEquationData(i+1, y0)
		if err != nil {
			return err
		}
		if init, ok := c.equations.(SecondaryInitializer); ok {
			init.Init(t0, primary0, secondary0, finalTime)
		}
	}
	return nil
}

// ComputeDerivatives evaluates the complete derivative: the primary
// block first, then the secondary blocks in registration order, each
// one seeing the primary derivative of this very call.
func (e *ExpandableODE) ComputeDerivatives(t float64, y, yDot []float64) error {
	n := e.TotalDimension()
	if err := CheckDimension("complete state", len(y), n); err != nil {
		return err
	}
	if err := CheckDimension("complete derivative", len(yDot), n); err != nil {
		return err
	}

	// the primary block is always [0, dim), work on views
	p := e.primary.Dimension()
	primary, primaryDot := y[:p], yDot[:p]
	if err := e.primary.ComputeDerivatives(t, primary, primaryDot); err != nil {
		return err
	}

	for i, c := range e.components {
		index := i + 1
		begin := e.mapper.start[index]
		end := e.mapper.start[index+1]
		copy(c.scratch, y[begin:end])
		if err := c.equations.ComputeDerivatives(t, primary, primaryDot, c.scratch, c.stateDot); err != nil {
			return fmt.Errorf("secondary equations %d: %w", index, err)
		}
		if err := e.mapper.InsertEquationData(index, c.stateDot, yDot); err != nil {
			return err
		}
	}
	return nil
}

// Time returns the current time.
func (e *ExpandableODE) Time() float64 {
	return e.time
}

// SetTime sets the current time.
func (e *ExpandableODE) SetTime(t float64) {
	e.time = t
}

// PrimaryState returns a copy of the current primary state.
func (e *ExpandableODE) PrimaryState() []float64 {
	return clone(e.primaryState)
}

// PrimaryStateDot returns a copy of the stored primary derivative.
func (e *ExpandableODE) PrimaryStateDot() []float64 {
	return clone(e.primaryStateDot)
}

// SetPrimaryState sets the current primary state.
func (e *ExpandableODE) SetPrimaryState(state []float64) error {
	if err := CheckDimension("primary state", len(state), len(e.primaryState)); err != nil {
		return err
	}
	copy(e.primaryState, state)
	return nil
}

func (e *ExpandableODE) component(index int) (*secondaryComponent, error) {
	if index < 1 || index > len(e.components) {
		return nil, fmt.Errorf("%w: secondary index %d not in [1, %d]", ErrIndexOutOfRange, index, len(e.components))
	}
	return e.components[index-1], nil
}

// SecondaryState returns a copy of the current state of block index.
func (e *ExpandableODE) SecondaryState(index int) ([]float64, error) {
	c, err := e.component(index)
	if err != nil {
		return nil, err
	}
	return clone(c.state), nil
}

// SecondaryStateDot returns a copy of the stored derivative of block index.
func (e *ExpandableODE) SecondaryStateDot(index int) ([]float64, error) {
	c, err := e.component(index)
	if err != nil {
		return nil, err
	}
	return clone(c.stateDot), nil
}

// SetSecondaryState sets the current state of block index.
func (e *ExpandableODE) SetSecondaryState(index int, state []float64) error {
	c, err := e.component(index)
	if err != nil {
		return err
	}
	if err := CheckDimension(fmt.Sprintf("secondary state %d", index), len(state), len(c.state)); err != nil {
		return err
	}
	copy(c.state, state)
	return nil
}

// CompleteState assembles the current complete state.
func (e *ExpandableODE) CompleteState() []float64 {
	y := make([]float64, e.TotalDimension())
	copy(y, e.primaryState)
	for i, c := range e.components {
		copy(y[e.mapper.start[i+1]:], c.state)
	}
	return y
}

// SetCompleteState dispatches y into the primary and secondary states.
func (e *ExpandableODE) SetCompleteState(y []float64) error {
	if err := CheckDimension("complete state", len(y), e.TotalDimension()); err != nil {
		return err
	}
	copy(e.primaryState, y[:len(e.primaryState)])
	for i, c := range e.components {
		begin := e.mapper.start[i+1]
		copy(c.state, y[begin:begin+len(c.state)])
	}
	return nil
}

// SetCompleteDerivative stores the derivative matching the current state.
func (e *ExpandableODE) SetCompleteDerivative(yDot []float64) error {
	if err := CheckDimension("complete derivative", len(yDot), e.TotalDimension()); err != nil {
		return err
	}
	copy(e.primaryStateDot, yDot[:len(e.primaryStateDot)])
	for i, c := range e.components {
		begin := e.mapper.start[i+1]
		copy(c.stateDot, yDot[begin:begin+len(c.stateDot)])
	}
	return nil
}
