package response

import (
	"github.com/gofiber/fiber/v2"

	"setoran-pa/internal/core/domain"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    domain.Kind `json:"kind,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// StatusFor maps an error kind onto the gateway's HTTP status
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNoCredentials, domain.KindUnauthorized, domain.KindRefreshFailed:
		return fiber.StatusUnauthorized
	case domain.KindForbidden:
		return fiber.StatusForbidden
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindServerRejected:
		return fiber.StatusBadGateway
	case domain.KindTransport:
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// Failed sends a classified error with its kind and the stream state, if any
func Failed(c *fiber.Ctx, kind domain.Kind, message string, data interface{}) error {
	return c.Status(StatusFor(kind)).JSON(Response{
		Success: false,
		Error:   message,
		Kind:    kind,
		Data:    data,
	})
}

// FromError sends err classified by the domain taxonomy
func FromError(c *fiber.Ctx, err error) error {
	return Failed(c, domain.KindOf(err), domain.Message(err), nil)
}

// State sends an operation outcome. Errors carry the state so clients can
// render it directly.
func State[T any](c *fiber.Ctx, message string, state domain.OperationState[T]) error {
	if state.Status == domain.StatusError {
		return Failed(c, state.Kind, state.Error, state)
	}
	return Success(c, message, state)
}
