package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/opsflow/pkg/graphstore"
)

var (
	// ErrDiscardStep marks one failed step of a discard. The remaining steps still ran.
	ErrDiscardStep = errors.New("discard step failed")

	ErrDiscardNotConfirmed = errors.New("discard was not confirmed")
	ErrNotReady            = errors.New("editor session is not ready")
	ErrNoSnapshot          = errors.New("no snapshot captured for the open workflow")
)

// StepAction is what a discard step tried to do to an entity.
type StepAction string

const (
	StepDelete   StepAction = "delete"
	StepRecreate StepAction = "recreate"
	StepRestore  StepAction = "restore"
)

// DiscardStepError is one entity the discard could not bring back to its snapshot state.
type DiscardStepError struct {
	Action StepAction
	Kind   graphstore.EntityKind
	ID     string
	Err    error
}

func (e *DiscardStepError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Action, e.Kind, e.ID, e.Err)
}

func (e *DiscardStepError) Unwrap() error {
	return e.Err
}

func (e *DiscardStepError) Is(target error) bool {
	return target == ErrDiscardStep
}

// DiscardError aggregates every failed step of one discard.
type DiscardError struct {
	Steps []*DiscardStepError
}

func (e *DiscardError) Error() string {
	parts := make([]string, 0, len(e.Steps))
	for _, step := range e.Steps {
		parts = append(parts, step.Error())
	}

	return fmt.Sprintf("discard finished with %d failed step(s): %s", len(e.Steps), strings.Join(parts, "; "))
}

func (e *DiscardError) Unwrap() []error {
	errs := make([]error, 0, len(e.Steps))
	for _, step := range e.Steps {
		errs = append(errs, step)
	}

	return errs
}
