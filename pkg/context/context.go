package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type key string

const (
	RequestIDKey key = "request_id"
	SessionIDKey key = "session_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDKey).(string)
	return sessionID
}

// FromFiberCtx derives a context from the request's user context carrying its request id.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()

	requestID, ok := c.Locals("X-Request-ID").(string)
	if !ok || requestID == "" {
		requestID = c.Get("X-Request-ID")

		if requestID == "" {
			requestID = "unknown"
		}
	}

	return WithRequestID(ctx, requestID)
}
