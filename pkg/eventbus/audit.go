package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/opsflow/pkg/events"
)

// RegisterAuditLog logs every graph change event received on bus.
func RegisterAuditLog(bus EventSubscriber, logger *slog.Logger) error {
	for _, eventType := range events.AllTypes() {
		err := bus.Handle(eventType, func(ctx context.Context, event any) error {
			logger.InfoContext(ctx, "graph change", auditAttrs(eventType, event)...)

			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func auditAttrs(eventType events.EventType, event any) []any {
	attrs := []any{"event_type", eventType}

	if h, ok := event.(interface{ Header() events.BaseEvent }); ok {
		attrs = append(attrs, "event_id", h.Header().ID, "workflow_id", h.Header().WorkflowID)
	}

	switch e := event.(type) {
	case *events.NodeCreated:
		attrs = append(attrs, "node_id", e.Node.ID, "category", e.Node.Category)
	case *events.NodeUpdated:
		attrs = append(attrs, "node_id", e.Node.ID)
	case *events.NodeDeleted:
		attrs = append(attrs, "node_id", e.NodeID, "cascaded", len(e.ConnectionIDs))
	case *events.ConnectionCreated:
		attrs = append(attrs, "connection_id", e.Connection.ID,
			"source_id", e.Connection.SourceID, "target_id", e.Connection.TargetID)
	case *events.ConnectionUpdated:
		attrs = append(attrs, "connection_id", e.Connection.ID)
	case *events.ConnectionDeleted:
		attrs = append(attrs, "connection_id", e.ConnectionID)
	case *events.WorkflowCreated:
		attrs = append(attrs, "name", e.Name, "source_id", e.SourceID)
	case *events.WorkflowPublished:
		attrs = append(attrs, "version", e.Version)
	}

	return attrs
}
