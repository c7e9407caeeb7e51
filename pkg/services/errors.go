// Package services implements the workflow backend business rules on top of persistence.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/opsflow/pkg/models"
	"github.com/dukex/opsflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidSortField   = errors.New("invalid sort field")
	ErrInvalidStatus      = errors.New("invalid workflow status")
	ErrInvalidNodeData    = errors.New("invalid node data")
	ErrInvalidConnection  = errors.New("invalid connection")
	ErrNothingToUpdate    = errors.New("nothing to update")
	ErrStartNodeRequired  = errors.New("workflow must have a start node")
	ErrDoneNodeRequired   = errors.New("workflow must have at least one done node")
	ErrWorkflowNameNeeded = errors.New("workflow name is required")

	// Business Logic Conflicts (409 Conflict).
	ErrWorkflowArchived = errors.New("archived workflows cannot be modified")

	// Not Found Errors (404).
	ErrWorkflowNotFound   = persistence.ErrWorkflowNotFound
	ErrNodeNotFound       = persistence.ErrNodeNotFound
	ErrConnectionNotFound = persistence.ErrConnectionNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidNodeData) ||
		errors.Is(err, ErrInvalidConnection) ||
		errors.Is(err, ErrNothingToUpdate) ||
		errors.Is(err, ErrStartNodeRequired) ||
		errors.Is(err, ErrDoneNodeRequired) ||
		errors.Is(err, ErrWorkflowNameNeeded) ||
		errors.Is(err, models.ErrSourceIsDone) ||
		errors.Is(err, models.ErrTargetIsStart) ||
		errors.Is(err, models.ErrSelfConnection)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowArchived) ||
		errors.Is(err, models.ErrStartNodeFixed) ||
		errors.Is(err, models.ErrDuplicateStart)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrConnectionNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
