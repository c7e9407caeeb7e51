package graphstore

import (
	"errors"
	"fmt"

	"github.com/dukex/opsflow/pkg/gateway"
	"github.com/go-playground/validator/v10"
)

var (
	// ErrValidation marks client-side invariant violations. They never reach the gateway.
	ErrValidation = errors.New("validation failed")

	// ErrLoad marks a failed graph load. No partial graph is applied.
	ErrLoad = errors.New("graph load failed")

	// ErrMutation marks a remote failure of an applied change. The change has been rolled back.
	ErrMutation = errors.New("graph mutation failed")

	ErrNotLoaded          = errors.New("no workflow is loaded")
	ErrWorkflowMismatch   = errors.New("workflow is not the one loaded in the store")
	ErrNodeNotFound       = errors.New("node not found")
	ErrConnectionNotFound = errors.New("connection not found")
)

// EntityKind names the kind of graph element an operation touches.
type EntityKind string

const (
	EntityNode       EntityKind = "node"
	EntityConnection EntityKind = "connection"
)

// ValidationError is a rejected operation. Err is the violated rule, when there is one.
type ValidationError struct {
	Op      string
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: invalid %s", e.Op, e.Field)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LoadError is a failed graph fetch.
type LoadError struct {
	WorkflowID string
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load workflow %s: %v", e.WorkflowID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// MutationError is a remote failure of an optimistic operation.
type MutationError struct {
	Op       string
	Kind     EntityKind
	EntityID string
	Err      error
}

func (e *MutationError) Error() string {
	if e.EntityID == "" {
		return fmt.Sprintf("%s %s failed: %s", e.Op, e.Kind, gateway.Message(e.Err))
	}

	return fmt.Sprintf("%s %s %s failed: %s", e.Op, e.Kind, e.EntityID, gateway.Message(e.Err))
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func (e *MutationError) Is(target error) bool {
	return target == ErrMutation
}

// IsValidationError reports whether err was raised before any network call.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsMutationError reports whether err is a rolled back remote failure.
func IsMutationError(err error) bool {
	return errors.Is(err, ErrMutation)
}

// IsLoadError reports whether err is a failed graph load.
func IsLoadError(err error) bool {
	return errors.Is(err, ErrLoad)
}

func invalid(op string, err error) *ValidationError {
	return &ValidationError{Op: op, Err: err}
}

func invalidField(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Message: message}
}

// fromValidator converts go-playground validation errors into a ValidationError naming the first
// offending field.
func fromValidator(op string, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]

		return &ValidationError{
			Op:      op,
			Field:   first.Field(),
			Message: fmt.Sprintf("%s failed on the '%s' rule", first.Field(), first.Tag()),
			Err:     err,
		}
	}

	return &ValidationError{Op: op, Err: err}
}
