package ppeHandler

import (
	"PPEGuard/internal/api/ppe"
	"PPEGuard/internal/entity"
	contextPkg "PPEGuard/pkg/context"
	"PPEGuard/pkg/handlerUtil"
	"PPEGuard/pkg/log"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// Image sessions wait on remote inference for every frame.
const imageSessionTimeout = 5 * time.Minute

func (h *PPEHandler) CreateSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create session request")

	var req ppe.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, ppe.ErrInvalidPayload, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	frames := make([]entity.Frame, 0, len(req.Frames))
	for _, payload := range req.Frames {
		frames = append(frames, payload.ToFrame())
	}

	session, err := h.ppeService.CreateSession(c, req.Name, frames)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"session_id": session.ID,
			"alerts":     session.AlertCount,
		}).Info("Session created")
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, session)
	}
}

func (h *PPEHandler) CreateImageSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), imageSessionTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing create image session request")

	form, err := ctx.MultipartForm()
	if err != nil {
		return errHandler.Handle(ctx, requestID, ppe.ErrInvalidImage, ctx.Path(), "parse_multipart_form")
	}

	req := ppe.CreateImageSessionRequest{
		Name: ctx.FormValue("name"),
	}

	timestamps, err := parseTimestamps(form.Value["timestamps"])
	if err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}
	req.Timestamps = timestamps

	for _, file := range form.File["images"] {
		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, ppe.ErrInvalidImage, ctx.Path(), "validate_image_file")
		}

		data, err := h.utils.ReadImageFile(file)
		if err != nil {
			return errHandler.Handle(ctx, requestID, ppe.ErrInvalidImage, ctx.Path(), "read_image_file")
		}
		req.Images = append(req.Images, data)
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"images":     len(req.Images),
	}).Debug("Running inference for image session")

	session, err := h.ppeService.CreateImageSession(c, req.Name, req.Timestamps, req.Images)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_image_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, session)
	}
}

func (h *PPEHandler) ListSessions(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req ppe.ListSessionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	sessions, err := h.ppeService.ListSessions(c, req.Limit, req.Offset)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_sessions")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, sessions)
	}
}

func (h *PPEHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing get session request")

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("session ID is required"), ctx.Path())
	}

	session, err := h.ppeService.GetSession(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, session)
	}
}

func (h *PPEHandler) GetWindow(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("session ID is required"), ctx.Path())
	}

	at, err := strconv.ParseFloat(ctx.Query("at"), 64)
	if err != nil {
		return errHandler.Handle(ctx, requestID, ppe.ErrInvalidWindowTime, ctx.Path(), "parse_window_time")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"at":         at,
	}).Debug("Processing get window request")

	snapshot, err := h.ppeService.GetWindow(c, id, at)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_window")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, snapshot)
	}
}

func (h *PPEHandler) DeleteSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("session ID is required"), ctx.Path())
	}

	if err := h.ppeService.DeleteSession(c, id); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "delete_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, fiber.Map{
			"message": "Session deleted successfully",
		})
	}
}

// parseTimestamps accepts repeated form values or one comma separated list.
func parseTimestamps(values []string) ([]float64, error) {
	var timestamps []float64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ts, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, errors.New("timestamps must be numbers of seconds")
			}
			timestamps = append(timestamps, ts)
		}
	}
	return timestamps, nil
}
