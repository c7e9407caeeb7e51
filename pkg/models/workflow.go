// Package models defines the workflow graph domain: workflows, status nodes and the transitions between them.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, never published
	WorkflowStatusPublished WorkflowStatus = "published" // Live, still editable
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Read-only
)

// IsValid reports whether s is a known workflow status.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusDraft, WorkflowStatusPublished, WorkflowStatusArchived:
		return true
	default:
		return false
	}
}

// Workflow is a named state machine made of status nodes and connections.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"      validate:"required,oneof=draft published archived"`
	Version     int            `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// WorkflowSummary is the list representation of a workflow.
type WorkflowSummary struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Status          WorkflowStatus `json:"status"`
	Version         int            `json:"version"`
	NodeCount       int            `json:"node_count"`
	ConnectionCount int            `json:"connection_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Summarize builds the list representation of w.
func (w Workflow) Summarize(nodeCount, connectionCount int) WorkflowSummary {
	return WorkflowSummary{
		ID:              w.ID,
		Name:            w.Name,
		Description:     w.Description,
		Status:          w.Status,
		Version:         w.Version,
		NodeCount:       nodeCount,
		ConnectionCount: connectionCount,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// WorkflowInput is the payload used to create a workflow.
type WorkflowInput struct {
	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
}

// WorkflowUpdate is a partial workflow update. Nil fields are left unchanged.
type WorkflowUpdate struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
}

// WorkflowFilter narrows a workflow listing.
type WorkflowFilter struct {
	Status *WorkflowStatus
	Search string
	Limit  int
	Offset int
}

// Page is one page of a listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	TotalCount  int64 `json:"total_count"`
	HasNextPage bool  `json:"has_next_page"`
}
