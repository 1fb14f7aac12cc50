package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type Middleware interface {
	RateLimit(group string) fiber.Handler
	NewRequestIDMiddleware() fiber.Handler
	NewLoggingMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
}

type middleware struct {
	rateLimitter        *rateLimiter
	loggingMiddleware   fiber.Handler
	requestIDMiddleware fiber.Handler
	log                 *logrus.Logger
}

func New(logger *logrus.Logger) Middleware {
	rateLimit := newRateLimiter(defaultLimits, defaultLimits[LimitSessions])
	logging := LoggerConfig(logger)
	requestID := NewRequestIDMiddleware()

	return &middleware{
		rateLimitter:        rateLimit,
		loggingMiddleware:   logging,
		requestIDMiddleware: requestID,
		log:                 logger,
	}
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestIDMiddleware
}

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return m.loggingMiddleware
}
