package dense

import "errors"

var (
	// ErrPropagationDirectionMismatch is returned when appending a model
	// integrated in the other direction.
	ErrPropagationDirectionMismatch = errors.New("dense: propagation direction mismatch")

	// ErrHoleBetweenModels is returned when appending a model that does
	// not start where the receiver ends.
	ErrHoleBetweenModels = errors.New("dense: hole between time ranges of models")

	// ErrEmptyModel is returned when interpolating in a model without
	// steps.
	ErrEmptyModel = errors.New("dense: model has no steps")
)
