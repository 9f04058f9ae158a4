package ode

import (
	"fmt"
	"math"

	"github.com/spf13/viper"
)

// ValidateAndPrepare checks the configuration for an integration from
// t to tEnd and sets default parameters where necessary. It modifies
// c, integrators call it on a copy.
func (c *Config) ValidateAndPrepare(t, tEnd float64) error {
	if c.AbsoluteTolerance < 0 || c.RelativeTolerance < 0 {
		return fmt.Errorf("%w: negative tolerance (abs %g, rel %g)", ErrInvalidConfig, c.AbsoluteTolerance, c.RelativeTolerance)
	}
	if c.MinStepSize < 0 || c.MaxStepSize < 0 {
		return fmt.Errorf("%w: negative step bound (min %g, max %g)", ErrInvalidConfig, c.MinStepSize, c.MaxStepSize)
	}

	if c.MaxStepSize <= 0.0 {
		c.MaxStepSize = math.Abs(tEnd - t)
	}
	if c.MinStepSize <= 0.0 {
		c.MinStepSize = 1e-10
	}
	if c.MaxStepCount == 0 {
		c.MaxStepCount = 1000000
	}
	if c.AbsoluteTolerance <= 0.0 {
		c.AbsoluteTolerance = 1e-4
	}
	if c.RelativeTolerance <= 0.0 {
		c.RelativeTolerance = c.AbsoluteTolerance
	}

	if c.MaxStepSize > 0 && c.MinStepSize > c.MaxStepSize {
		return fmt.Errorf("%w: min step %g above max step %g", ErrInvalidConfig, c.MinStepSize, c.MaxStepSize)
	}
	return nil
}

// Tolerance returns the error scale of a component of magnitude y.
func (c *Config) Tolerance(y float64) float64 {
	return c.AbsoluteTolerance + c.RelativeTolerance*math.Abs(y)
}

// ConfigFromViper reads the integrator configuration stored under key,
// e.g. with key "integrator" a TOML file would contain
//
//	[integrator]
//	abs_tol = 1e-8
//	rel_tol = 1e-8
//	max_step = 0.5
func ConfigFromViper(v *viper.Viper, key string) Config {
	sub := func(name string) string {
		if key == "" {
			return name
		}
		return key + "." + name
	}

	return Config{
		InitialStepSize:   v.GetFloat64(sub("initial_step")),
		MinStepSize:       v.GetFloat64(sub("min_step")),
		MaxStepSize:       v.GetFloat64(sub("max_step")),
		AbsoluteTolerance: v.GetFloat64(sub("abs_tol")),
		RelativeTolerance: v.GetFloat64(sub("rel_tol")),
		MaxStepCount:      v.GetUint(sub("max_steps")),
		OneStepOnly:       v.GetBool(sub("one_step_only")),
	}
}
