package handlerUtil

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/pkg/log"
	ppePkg "PPEGuard/pkg/ppe"
	"PPEGuard/pkg/response"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	// Engine errors that escaped the service layer
	if errors.Is(err, ppePkg.ErrOutOfOrder) {
		err = ppe.ErrOutOfOrderFrames
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		if respErr.Code >= fiber.StatusInternalServerError {
			h.logger.WithFields(fields).Error("Operation failed with error response")
		} else {
			h.logger.WithFields(fields).Warn("Operation failed with error response")
		}
		return c.Status(respErr.Code).JSON(ErrorResponse{
			Error: respErr.Error(),
			Code:  errorCode(respErr),
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		h.logger.WithFields(fields).Warn("Operation timed out")
		return h.HandleRequestTimeout(c)
	}

	if errors.Is(err, context.Canceled) {
		h.logger.WithFields(fields).Info("Operation cancelled by client")
		return c.SendStatus(fiber.StatusRequestTimeout)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(fields).Warn("Request rejected")
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(fields, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		Details: "trace_id: " + traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}

var errorCodes = map[error]string{
	ppe.ErrInvalidPayload:       "INVALID_PAYLOAD",
	ppe.ErrOutOfOrderFrames:     "OUT_OF_ORDER_FRAMES",
	ppe.ErrEmptySession:         "EMPTY_SESSION",
	ppe.ErrInvalidImage:         "INVALID_IMAGE",
	ppe.ErrTimestampMismatch:    "TIMESTAMP_MISMATCH",
	ppe.ErrInvalidWindowTime:    "INVALID_WINDOW_TIME",
	ppe.ErrSessionNotFound:      "SESSION_NOT_FOUND",
	ppe.ErrSessionFramesExpired: "SESSION_FRAMES_EXPIRED",
	ppe.ErrInferenceUnavailable: "INFERENCE_UNAVAILABLE",
	ppe.ErrInternalServerError:  "INTERNAL_SERVER_ERROR",
}

func errorCode(err *response.Error) string {
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}
