package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/veergo/motorbff/pkg/proposal"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleJourneyError translates pipeline failures into client responses.
// Arbitrated same-step errors keep their code and configured details so
// the client can render the toast; everything else is a problem document.
func handleJourneyError(c fiber.Ctx, err error) error {
	var apiErr *proposal.APIError
	if errors.As(err, &apiErr) {
		return c.Status(fiber.StatusBadRequest).JSON(apiErr)
	}

	var flowErr *proposal.IllogicalFlowError
	if errors.As(err, &flowErr) {
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("illogical_flow").
			WithDetail(flowErr.Message)

		return c.Status(fiber.StatusBadRequest).JSON(problem)
	}

	if errors.Is(err, proposal.ErrIncompleteData) {
		return badRequest(c, err.Error())
	}

	return internalError(c, err)
}
