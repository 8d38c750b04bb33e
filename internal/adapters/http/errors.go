package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return newErrorWithDetails(c, status, code, message, nil)
}

func newErrorWithDetails(c *fiber.Ctx, status int, code, message string, details any) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
		Details:   details,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusConflict, "conflict", msg)
}

// errUnprocessable returns a 422 error.
func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnprocessableEntity, "unprocessable", msg)
}

// mapError translates a use case error into its HTTP response.
func mapError(c *fiber.Ctx, err error) error {
	var conflict *usecases.ConflictError
	var window *usecases.WindowError

	switch {
	case errors.As(err, &conflict):
		return newErrorWithDetails(c, fiber.StatusConflict, "conflict", err.Error(), conflict.Result)
	case errors.As(err, &window):
		return newErrorWithDetails(c, fiber.StatusUnprocessableEntity, "unprocessable", err.Error(), window.Check)
	case errors.Is(err, domain.ErrInvalidInput):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrTripNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrScheduleConflict),
		errors.Is(err, domain.ErrTripNotEditable),
		errors.Is(err, domain.ErrLegAlreadyReached):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrScheduleTooShort):
		return errUnprocessable(c, err.Error())
	}

	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
