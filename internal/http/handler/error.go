package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"trustdocs/internal/http/middleware"
	"trustdocs/internal/intake"
	"trustdocs/internal/verification"
)

// errorPayload is the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details *intake.Rejection `json:"details,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeRejection surfaces a business rejection with its structured detail so
// the caller can act on it; rejections are final, not retriable.
func writeRejection(c *fiber.Ctx, rej *intake.Rejection) error {
	status := fiber.StatusUnprocessableEntity
	code := "REJECTED"
	switch rej.Reason {
	case intake.ReasonThreatDetected:
		code = "THREAT_DETECTED"
	case intake.ReasonValidationFailed:
		code = "VALIDATION_FAILED"
	case intake.ReasonAccessDenied:
		status = fiber.StatusForbidden
		code = "ACCESS_DENIED"
	case intake.ReasonUnknownCategory:
		status = fiber.StatusBadRequest
		code = "UNKNOWN_CATEGORY"
	}
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: rej.Error(),
			Details: rej,
		},
	}
	return c.Status(status).JSON(res)
}

// mapError translates pipeline and reconciler errors into responses.
func mapError(c *fiber.Ctx, err error) error {
	if rej, ok := intake.AsRejection(err); ok {
		return writeRejection(c, rej)
	}
	if errors.Is(err, intake.ErrNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	}
	if errors.Is(err, verification.ErrInvalidTransition) {
		return writeError(c, fiber.StatusConflict, "INVALID_TRANSITION", "verification is not awaiting adjudication")
	}
	if errors.Is(err, verification.ErrUnknownDecision) {
		return writeError(c, fiber.StatusBadRequest, "INVALID_DECISION", "decision must be approve or reject")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
