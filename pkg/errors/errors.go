// Package errors provides the error taxonomy shared by every graph kernel.
//
// All constructors attach a stack trace through cockroachdb/errors, and every
// structured error can be logged as a zerolog object.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	Structured error types
//
// ===========================================================================

// InvalidInputError is returned when graph input is empty or malformed, or
// when label typing is inconsistent across a batch.
type InvalidInputError struct {
	Op string
	// GraphIndex is the position of the offending graph in the batch, or -1
	// when the batch as a whole is invalid.
	GraphIndex int
	Reason     string
}

func (e *InvalidInputError) Error() string {
	if e.GraphIndex >= 0 {
		return fmt.Sprintf("grakel: %s: invalid input at graph %d: %s", e.Op, e.GraphIndex, e.Reason)
	}
	return fmt.Sprintf("grakel: %s: invalid input: %s", e.Op, e.Reason)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *InvalidInputError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("graph_index", e.GraphIndex).
		Str("reason", e.Reason).
		Str("type", "InvalidInputError")
}

// NewInvalidInputError creates an InvalidInputError for a single graph.
func NewInvalidInputError(op string, graphIndex int, reason string) error {
	return errors.WithStack(&InvalidInputError{Op: op, GraphIndex: graphIndex, Reason: reason})
}

// NewInvalidInputErrorf is NewInvalidInputError with a formatted reason.
func NewInvalidInputErrorf(op string, graphIndex int, format string, args ...interface{}) error {
	return errors.WithStack(&InvalidInputError{Op: op, GraphIndex: graphIndex, Reason: fmt.Sprintf(format, args...)})
}

// NotFittedError is returned when Transform or Diagonal is called before Fit.
type NotFittedError struct {
	KernelName string
	Method     string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("grakel: %s: this kernel is not fitted yet. Call Fit() before using %s()", e.KernelName, e.Method)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kernel_name", e.KernelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace.
func NewNotFittedError(kernelName, method string) error {
	return errors.WithStack(&NotFittedError{KernelName: kernelName, Method: method})
}

// ConfigurationError reports an unknown kernel name or an incompatible
// option combination. It is always raised at construction time.
type ConfigurationError struct {
	Component string
	Param     string
	Reason    string
	Value     interface{}
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return fmt.Sprintf("grakel: %s: configuration error: %s", e.Component, e.Reason)
	}
	if e.Value == nil {
		return fmt.Sprintf("grakel: %s: configuration error for '%s': %s", e.Component, e.Param, e.Reason)
	}
	return fmt.Sprintf("grakel: %s: configuration error for '%s': %s (got: %v)", e.Component, e.Param, e.Reason, e.Value)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *ConfigurationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("component", e.Component).
		Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ConfigurationError")
}

// NewConfigurationError creates a ConfigurationError with a stack trace.
func NewConfigurationError(component, param, reason string, value interface{}) error {
	return errors.WithStack(&ConfigurationError{Component: component, Param: param, Reason: reason, Value: value})
}

// KernelComputationError reports that the similarity of one pair could not
// be computed. Row indexes the query (left) collection and Col the fitted
// (right) collection.
type KernelComputationError struct {
	Kernel string
	Row    int
	Col    int
	Err    error
}

func (e *KernelComputationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grakel: %s: kernel computation failed for pair (%d, %d): %v", e.Kernel, e.Row, e.Col, e.Err)
	}
	return fmt.Sprintf("grakel: %s: kernel computation failed for pair (%d, %d)", e.Kernel, e.Row, e.Col)
}

func (e *KernelComputationError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *KernelComputationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("kernel", e.Kernel).
		Int("row", e.Row).
		Int("col", e.Col).
		Str("type", "KernelComputationError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewKernelComputationError creates a KernelComputationError with a stack trace.
func NewKernelComputationError(kernel string, row, col int, err error) error {
	return errors.WithStack(&KernelComputationError{Kernel: kernel, Row: row, Col: col, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// Mark makes err match reference under Is while keeping its own type and
// message.
func Mark(err, reference error) error {
	return errors.Mark(err, reference)
}

// WithStack attaches a stack trace to err.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	Numerical errors
//
// ===========================================================================

// NumericalInstabilityError reports NaN or Inf values produced by a
// computation.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("grakel: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// MarshalZerologObject adds the structured fields to a zerolog event.
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError creates a NumericalInstabilityError.
func NewNumericalInstabilityError(operation string, values []float64) error {
	return errors.WithStack(&NumericalInstabilityError{Operation: operation, Values: values})
}

// ===========================================================================
//
//	Sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is wrapped when an empty graph collection is supplied.
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix is wrapped when a linear system has no unique solution.
	ErrSingularMatrix = New("singular matrix")

	// ErrSolverUnavailable is wrapped when an external solver is required but absent.
	ErrSolverUnavailable = New("solver unavailable")
)
