package fractal

import (
	"errors"
	"fmt"
)

var (
	ErrMandelbrot = errors.New("mandelbrot render failed")
	ErrJulia      = errors.New("julia render failed")
	ErrLSystem    = errors.New("l-system render failed")
	ErrCantor     = errors.New("cantor dust render failed")

	// ErrUnbalancedBranch is returned when ']' pops an empty branch stack
	ErrUnbalancedBranch = errors.New("branch stack underflow")
)

// ParameterError reports a missing or invalid request field
type ParameterError struct {
	Field    string
	Expected string
	Value    any
}

func (e *ParameterError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("parameter %s: expected %s", e.Field, e.Expected)
	}
	return fmt.Sprintf("parameter %s: expected %s, got %v (%T)", e.Field, e.Expected, e.Value, e.Value)
}

// RenderError wraps a computation failure with the request that caused it.
// errors.Is matches the kind sentinel (ErrMandelbrot, ErrJulia, ...).
type RenderError struct {
	Err         error
	Kind        Kind
	Params      Params
	Remediation string
}

func NewRenderError(kind Kind, params Params, err error) *RenderError {
	return &RenderError{
		Err:         err,
		Kind:        kind,
		Params:      params,
		Remediation: remediation(kind, err),
	}
}

func (e *RenderError) Error() string {
	message := fmt.Sprintf("render %s: %v", e.Kind, e.Err)
	if e.Remediation != "" {
		message += " (" + e.Remediation + ")"
	}
	return message
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func (e *RenderError) Is(target error) bool {
	return target == KindError(e.Kind)
}

// KindError returns the sentinel matching a fractal kind
func KindError(kind Kind) error {
	switch kind {
	case Mandelbrot:
		return ErrMandelbrot
	case Julia:
		return ErrJulia
	case LSystem:
		return ErrLSystem
	case CantorDust:
		return ErrCantor
	}
	return nil
}

func remediation(kind Kind, err error) string {
	if errors.Is(err, ErrUnbalancedBranch) {
		return "balance every ']' with an earlier '[' in the axiom and rules"
	}
	switch kind {
	case Mandelbrot, Julia:
		return "lower max_iterations or the raster size"
	case LSystem:
		return "check the l-system axiom and rules syntax"
	case CantorDust:
		return "lower recursion_depth"
	}
	return ""
}
