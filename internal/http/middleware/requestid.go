package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id on requests and responses.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is where RequestID stores the id in context locals,
	// read back by RequestLogger and the error responses.
	RequestIDLocalKey = "request_id"
)

// RequestID assigns every request an id: the caller's X-Request-ID when
// present, a fresh UUID otherwise. The id is stored in context locals and
// echoed on the response header.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}
