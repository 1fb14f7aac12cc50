package ppeHandler

import (
	"PPEGuard/internal/api/ppe"
	contextPkg "PPEGuard/pkg/context"
	"PPEGuard/pkg/handlerUtil"
	"PPEGuard/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *PPEHandler) EvaluateFrame(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing evaluate frame request")

	var req ppe.EvaluateFrameRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, ppe.ErrInvalidPayload, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.ppeService.EvaluateFrame(c, req.ToFrame())
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "evaluate_frame")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}
