// Package variational computes the sensitivities of an ODE solution with
// respect to its initial state and to parameters by integrating the
// variational equations alongside the ODE.
//
// With Z = dY/dY0 and W_p = dY/dp the variational equations are
//
//	Z'   = dF/dY Z
//	W_p' = dF/dY W_p + dF/dp
//
// and are registered as a secondary equation set of an
// ode.ExpandableODE.
package variational

import (
	"fmt"
	"reflect"

	kitlog "github.com/go-kit/kit/log"
	"github.com/rollingthunder/multistep/ode"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// JacobianMatrices holds the variational equations of a primary ODE.
//
// The secondary state is stateDim*(stateDim+paramDim) long: dY/dY0 row
// major, followed by one contiguous column dY/dp per selected
// parameter, in selection order.
type JacobianMatrices struct {
	jode       MainStateJacobianProvider
	parameters []*ParameterConfiguration

	// explicit providers are consulted in registration order, the
	// finite difference wrapper last
	providers []ParameterJacobianProvider
	wrapper   *ParameterJacobianWrapper

	stateDim, paramDim int
	data               []float64

	expandable *ode.ExpandableODE
	index      int

	logger kitlog.Logger
}

// New builds the variational equations of primary, approximating dF/dY
// by finite differences with steps hY.
func New(primary ode.Primary, hY []float64, parameters ...string) (*JacobianMatrices, error) {
	jode, err := NewMainStateJacobianWrapper(primary, hY)
	if err != nil {
		return nil, err
	}
	return NewWithProvider(jode, parameters...)
}

// NewWithProvider builds the variational equations of an ODE knowing its
// state Jacobian.
func NewWithProvider(jode MainStateJacobianProvider, parameters ...string) (*JacobianMatrices, error) {
	j := &JacobianMatrices{
		jode:     jode,
		stateDim: jode.Dimension(),
		paramDim: len(parameters),
		logger:   ode.NopLogger(),
	}
	for i, name := range parameters {
		for _, previous := range parameters[:i] {
			if previous == name {
				return nil, fmt.Errorf("%w: parameter %q selected twice", ode.ErrInvalidConfig, name)
			}
		}
		j.parameters = append(j.parameters, newParameterConfiguration(name))
	}

	// dY/dY0 starts as identity, dY/dp as zero
	j.data = make([]float64, j.stateDim*(j.stateDim+j.paramDim))
	for i := 0; i < j.stateDim; i++ {
		j.data[i*(j.stateDim+1)] = 1
	}
	return j, nil
}

// SetLogger replaces the logger, which defaults to a nop logger.
func (j *JacobianMatrices) SetLogger(logger kitlog.Logger) {
	j.logger = kitlog.With(logger, "subsys", "variational")
}

// Dimension returns the size of the variational state.
func (j *JacobianMatrices) Dimension() int {
	return len(j.data)
}

// RegisterVariationalEquations adds the variational equations to
// expandable, whose primary must be the ODE the matrices were built
// for. It can only be done once.
func (j *JacobianMatrices) RegisterVariationalEquations(expandable *ode.ExpandableODE) error {
	if j.expandable != nil {
		return fmt.Errorf("%w: variational equations already registered", ode.ErrMismatchedEquations)
	}

	var primary ode.Primary = j.jode
	if wrapper, ok := j.jode.(*MainStateJacobianWrapper); ok {
		primary = wrapper.Primary()
	}
	if !sameEquations(expandable.Primary(), primary) {
		return fmt.Errorf("%w: primary equations differ", ode.ErrMismatchedEquations)
	}

	index, err := expandable.AddSecondaryEquations(&variationalEquations{
		owner: j,
		dFdY:  mat.NewDense(j.stateDim, j.stateDim, nil),
		dFdP:  make([]float64, j.stateDim),
	})
	if err != nil {
		return err
	}
	j.expandable, j.index = expandable, index
	return j.push()
}

func sameEquations(a, b ode.Primary) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// push copies the matrices into the expandable, if registered.
func (j *JacobianMatrices) push() error {
	if j.expandable == nil {
		return nil
	}
	return j.expandable.SetSecondaryState(j.index, j.data)
}

// AddParameterJacobianProvider adds an exact dF/dp provider. Providers
// are tried in the order they were added, the first one supporting a
// parameter is used.
func (j *JacobianMatrices) AddParameterJacobianProvider(provider ParameterJacobianProvider) {
	j.providers = append(j.providers, provider)
}

// SetParameterizedODE gives access to the parameter values, so dF/dp
// can be approximated by finite differences for parameters no provider
// supports. The steps come from SetParameterStep.
func (j *JacobianMatrices) SetParameterizedODE(pode ParameterizedODE) {
	if pode == nil {
		j.wrapper = nil
		return
	}
	j.wrapper = NewParameterJacobianWrapper(j.jode, pode, j.parameters)
}

func (j *JacobianMatrices) parameter(name string) (int, error) {
	for k, p := range j.parameters {
		if p.name == name {
			return k, nil
		}
	}
	return -1, &ode.ParameterError{Name: name}
}

// SetParameterStep sets the finite difference step of a selected
// parameter. The step should be small relative to the parameter value
// but well above its rounding error.
func (j *JacobianMatrices) SetParameterStep(name string, hP float64) error {
	k, err := j.parameter(name)
	if err != nil {
		return err
	}
	j.parameters[k].hP = hP
	return nil
}

// Parameters returns the selected parameters in selection order.
func (j *JacobianMatrices) Parameters() []*ParameterConfiguration {
	return j.parameters
}

// SetInitialMainStateJacobian sets dY/dY0 at the start of the
// integration. It defaults to identity.
func (j *JacobianMatrices) SetInitialMainStateJacobian(dYdY0 mat.Matrix) error {
	r, c := dYdY0.Dims()
	if err := ode.CheckDimension("initial state jacobian rows", r, j.stateDim); err != nil {
		return err
	}
	if err := ode.CheckDimension("initial state jacobian columns", c, j.stateDim); err != nil {
		return err
	}

	for i := 0; i < r; i++ {
		for k := 0; k < c; k++ {
			j.data[i*j.stateDim+k] = dYdY0.At(i, k)
		}
	}
	return j.push()
}

// SetInitialParameterJacobian sets dY/dp at the start of the
// integration. It defaults to zero.
func (j *JacobianMatrices) SetInitialParameterJacobian(name string, dYdP []float64) error {
	k, err := j.parameter(name)
	if err != nil {
		return err
	}
	if err = ode.CheckDimension("initial parameter jacobian", len(dYdP), j.stateDim); err != nil {
		return err
	}

	copy(j.data[j.parameterOffset(k):], dYdP)
	return j.push()
}

func (j *JacobianMatrices) parameterOffset(k int) int {
	return j.stateDim * (j.stateDim + k)
}

func (j *JacobianMatrices) current() ([]float64, error) {
	if j.expandable == nil {
		return nil, fmt.Errorf("%w: variational equations not registered", ode.ErrMismatchedEquations)
	}
	return j.expandable.SecondaryState(j.index)
}

// CurrentMainSetJacobian writes the current dY/dY0 into dYdY0, which
// must be stateDim x stateDim.
func (j *JacobianMatrices) CurrentMainSetJacobian(dYdY0 *mat.Dense) error {
	p, err := j.current()
	if err != nil {
		return err
	}
	r, c := dYdY0.Dims()
	if err = ode.CheckDimension("state jacobian rows", r, j.stateDim); err != nil {
		return err
	}
	if err = ode.CheckDimension("state jacobian columns", c, j.stateDim); err != nil {
		return err
	}
	dYdY0.Copy(mat.NewDense(j.stateDim, j.stateDim, p[:j.stateDim*j.stateDim]))
	return nil
}

// CurrentParameterJacobian writes the current dY/dp of a selected
// parameter into dYdP.
func (j *JacobianMatrices) CurrentParameterJacobian(name string, dYdP []float64) error {
	p, err := j.current()
	if err != nil {
		return err
	}
	k, err := j.parameter(name)
	if err != nil {
		return err
	}
	if err = ode.CheckDimension("parameter jacobian", len(dYdP), j.stateDim); err != nil {
		return err
	}
	offset := j.parameterOffset(k)
	copy(dYdP, p[offset:offset+j.stateDim])
	return nil
}

// parameterProvider returns the provider in charge of a parameter, or
// nil if there is none.
func (j *JacobianMatrices) parameterProvider(name string) ParameterJacobianProvider {
	for _, provider := range j.providers {
		if provider.IsSupported(name) {
			return provider
		}
	}
	if j.wrapper != nil && j.wrapper.IsSupported(name) {
		return j.wrapper
	}
	return nil
}

// variationalEquations is the secondary equation set registered into the
// expandable. It works on the buffers of its owner.
type variationalEquations struct {
	owner *JacobianMatrices
	dFdY  *mat.Dense
	dFdP  []float64

	unsupported map[string]bool
}

func (v *variationalEquations) Dimension() int {
	return v.owner.Dimension()
}

func (v *variationalEquations) ComputeDerivatives(t float64, primary, primaryDot, z, zDot []float64) error {
	j := v.owner
	n := j.stateDim
	if err := ode.CheckDimension("variational state", len(z), j.Dimension()); err != nil {
		return err
	}

	if err := j.jode.ComputeMainStateJacobian(t, primary, primaryDot, v.dFdY); err != nil {
		return fmt.Errorf("variational: state jacobian: %w", err)
	}

	// Z' = dF/dY Z
	stateBlock := mat.NewDense(n, n, zDot[:n*n])
	stateBlock.Mul(v.dFdY, mat.NewDense(n, n, z[:n*n]))

	for k, p := range j.parameters {
		offset := j.parameterOffset(k)
		column := zDot[offset : offset+n]

		provider := j.parameterProvider(p.name)
		if provider == nil {
			if !v.unsupported[p.name] {
				if v.unsupported == nil {
					v.unsupported = make(map[string]bool)
				}
				v.unsupported[p.name] = true
				j.logger.Log("level", "debug", "event", "zero parameter jacobian", "parameter", p.name)
			}
			for i := range column {
				column[i] = 0
			}
			continue
		}

		if err := provider.ComputeParameterJacobian(t, primary, primaryDot, p.name, v.dFdP); err != nil {
			return fmt.Errorf("variational: parameter %q jacobian: %w", p.name, err)
		}
		// W_p' = dF/dY W_p + dF/dp
		mat.NewVecDense(n, column).MulVec(v.dFdY, mat.NewVecDense(n, z[offset:offset+n]))
		floats.Add(column, v.dFdP)
	}
	return nil
}
