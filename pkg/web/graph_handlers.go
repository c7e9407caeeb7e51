package web

import (
	"github.com/dukex/opsflow/pkg/models"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetWorkflowNodes(c fiber.Ctx) error {
	nodes, err := h.nodeService.ListNodes(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(nodes)
}

func (h *APIHandlers) CreateWorkflowNode(c fiber.Ctx) error {
	var draft models.NodeDraft
	if err := c.Bind().JSON(&draft); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := h.nodeService.CreateNode(c.Context(), c.Params("id"), draft)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(node)
}

func (h *APIHandlers) UpdateWorkflowNode(c fiber.Ctx) error {
	var update models.NodeUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := h.nodeService.UpdateNode(c.Context(), c.Params("id"), c.Params("nodeId"), update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(node)
}

func (h *APIHandlers) DeleteWorkflowNode(c fiber.Ctx) error {
	err := h.nodeService.DeleteNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetWorkflowConnections(c fiber.Ctx) error {
	connections, err := h.connectionService.ListConnections(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(connections)
}

func (h *APIHandlers) CreateWorkflowConnection(c fiber.Ctx) error {
	var draft models.ConnectionDraft
	if err := c.Bind().JSON(&draft); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	connection, err := h.connectionService.CreateConnection(c.Context(), c.Params("id"), draft)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(connection)
}

func (h *APIHandlers) UpdateWorkflowConnection(c fiber.Ctx) error {
	var update models.ConnectionUpdate
	if err := c.Bind().JSON(&update); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	connection, err := h.connectionService.UpdateConnection(c.Context(), c.Params("id"), c.Params("connectionId"), update)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(connection)
}

func (h *APIHandlers) DeleteWorkflowConnection(c fiber.Ctx) error {
	err := h.connectionService.DeleteConnection(c.Context(), c.Params("id"), c.Params("connectionId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
