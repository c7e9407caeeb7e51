package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts the workflow, node and connection endpoints on router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/duplicate", h.DuplicateWorkflow)
	w.Post("/:id/publish", h.PublishWorkflow)
	w.Post("/:id/archive", h.ArchiveWorkflow)

	w.Get("/:id/nodes", h.GetWorkflowNodes)
	w.Post("/:id/nodes", h.CreateWorkflowNode)
	w.Patch("/:id/nodes/:nodeId", h.UpdateWorkflowNode)
	w.Delete("/:id/nodes/:nodeId", h.DeleteWorkflowNode)

	w.Get("/:id/connections", h.GetWorkflowConnections)
	w.Post("/:id/connections", h.CreateWorkflowConnection)
	w.Patch("/:id/connections/:connectionId", h.UpdateWorkflowConnection)
	w.Delete("/:id/connections/:connectionId", h.DeleteWorkflowConnection)

	router.Get("/health", h.HealthCheck)
}
