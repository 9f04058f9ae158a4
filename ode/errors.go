package ode

import (
	"errors"
	"fmt"
)

// Sentinel errors of the ode packages. Match them with errors.Is,
// the concrete errors below carry the details.
var (
	// ErrDimensionMismatch is returned when an array does not have the
	// dimension declared by the equations it belongs to.
	ErrDimensionMismatch = errors.New("ode: dimension mismatch")

	// ErrIndexOutOfRange is returned for an equations block index that
	// does not exist in a mapper.
	ErrIndexOutOfRange = errors.New("ode: equations block index out of range")

	// ErrUnknownParameter is returned for a parameter name that was not
	// selected when the variational equations were built.
	ErrUnknownParameter = errors.New("ode: unknown parameter")

	// ErrMismatchedEquations is returned when variational equations are
	// used against an expandable ODE they were not built for.
	ErrMismatchedEquations = errors.New("ode: mismatched equations")

	// ErrTooFewSteps is returned when a multistep method is configured
	// with less than two steps.
	ErrTooFewSteps = errors.New("ode: multistep method needs at least two steps")

	// ErrStarterStoppedEarly is returned when the starter integrator
	// reached its target before enough points were collected.
	ErrStarterStoppedEarly = errors.New("ode: multistep starter stopped early")

	// ErrStepSizeTooSmall is returned when the step size control needs a
	// step below the configured minimum.
	ErrStepSizeTooSmall = errors.New("ode: step size too small")

	// ErrMaxStepCount is returned when the target time was not reached
	// within the configured number of steps.
	ErrMaxStepCount = errors.New("ode: maximum step count exceeded")

	// ErrInvalidConfig is returned for tolerances or step bounds that
	// cannot be used.
	ErrInvalidConfig = errors.New("ode: invalid configuration")

	// ErrMissingParameterStep is returned when a finite difference with
	// respect to a parameter is needed but no step was configured for it.
	ErrMissingParameterStep = errors.New("ode: missing finite difference step for parameter")
)

// DimensionError reports which array had the wrong size.
type DimensionError struct {
	What             string
	Actual, Expected int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("ode: dimension mismatch: %s has %d, expected %d", e.What, e.Actual, e.Expected)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// CheckDimension returns a *DimensionError if actual != expected.
func CheckDimension(what string, actual, expected int) error {
	if actual != expected {
		return &DimensionError{What: what, Actual: actual, Expected: expected}
	}
	return nil
}

// ParameterError names a parameter that is not known to the equations.
type ParameterError struct {
	Name string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("ode: unknown parameter %q", e.Name)
}

func (e *ParameterError) Unwrap() error {
	return ErrUnknownParameter
}
