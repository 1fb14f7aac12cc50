package middleware

import (
	contextPkg "PPEGuard/pkg/context"
	"PPEGuard/pkg/utils"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	RequestIDKey = "X-Request-ID"

	maxRequestIDLength = 64
)

// NewRequestIDMiddleware keeps a well-formed client id or mints a ULID, and exposes it
// to fiber locals, the response header and the request's user context.
func NewRequestIDMiddleware() fiber.Handler {
	utilsInstance := utils.New()

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDKey)

		if !validRequestID(requestID) {
			requestID, _ = utilsInstance.NewULIDFromTimestamp(time.Now())
		}

		c.Locals(RequestIDKey, requestID)
		c.Set(RequestIDKey, requestID)
		c.SetUserContext(contextPkg.WithRequestID(c.UserContext(), requestID))

		return c.Next()
	}
}

// validRequestID accepts ids made of letters, digits, '-', '_' and '.', so they are safe to log.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
