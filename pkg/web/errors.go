package web

import (
	"errors"

	"github.com/dukex/opsflow/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service layer errors onto RFC 7807 problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFoundError(err):
		problemType, detail := "workflow_not_found", "workflow not found"

		switch {
		case errors.Is(err, services.ErrConnectionNotFound):
			problemType, detail = "connection_not_found", "connection not found"
		case errors.Is(err, services.ErrNodeNotFound):
			problemType, detail = "node_not_found", "node not found"
		}

		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType(problemType).
			WithDetail(detail)

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case services.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(detailOf(err))

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(detailOf(err))

		return c.Status(fiber.StatusConflict).JSON(problem)

	default:
		return internalError(c, err)
	}
}

// detailOf prefers the human-readable message of a service error.
func detailOf(err error) string {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}

	return err.Error()
}
