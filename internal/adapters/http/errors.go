package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, no_snapshot, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errNoSnapshot returns a 503 until the first cycle has completed.
func errNoSnapshot(c *fiber.Ctx) error {
	c.Set("Retry-After", "60")
	return newError(c, 503, "no_snapshot", domain.ErrNoSnapshot.Error())
}

// errFrom maps service errors onto responses.
func errFrom(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNoSnapshot):
		return errNoSnapshot(c)
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	default:
		return errInternal(c, err.Error())
	}
}
