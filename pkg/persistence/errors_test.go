package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/opsflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
		check    func(error) bool
		contains []string
	}{
		{
			name:     "workflow error",
			err:      persistence.NewWorkflowError("UpdateWorkflow", "workflow-123", persistence.ErrWorkflowNotFound),
			sentinel: persistence.ErrWorkflowNotFound,
			check:    persistence.IsWorkflowNotFound,
			contains: []string{"UpdateWorkflow", "workflow-123", "workflow not found"},
		},
		{
			name:     "node error",
			err:      persistence.NewNodeError("DeleteNode", "workflow-123", "node-7", persistence.ErrNodeNotFound),
			sentinel: persistence.ErrNodeNotFound,
			check:    persistence.IsNodeNotFound,
			contains: []string{"DeleteNode", "node-7", "workflow-123"},
		},
		{
			name:     "connection error",
			err:      persistence.NewConnectionError("UpdateConnection", "workflow-123", "conn-2", persistence.ErrConnectionNotFound),
			sentinel: persistence.ErrConnectionNotFound,
			check:    persistence.IsConnectionNotFound,
			contains: []string{"UpdateConnection", "conn-2", "connection not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))

			for _, s := range tt.contains {
				assert.Contains(t, tt.err.Error(), s)
			}
		})
	}
}

func TestStandardizedErrors_DoNotCrossMatch(t *testing.T) {
	t.Parallel()

	err := persistence.NewNodeError("GetNode", "wf", "n", persistence.ErrNodeNotFound)

	assert.False(t, persistence.IsWorkflowNotFound(err))
	assert.False(t, persistence.IsConnectionNotFound(err))
	assert.False(t, errors.Is(err, persistence.ErrInvalidSort))
}
