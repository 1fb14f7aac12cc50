package ppeHandler

import (
	ppeService "PPEGuard/internal/api/ppe/service"
	"PPEGuard/internal/middleware"
	"PPEGuard/pkg/metrics"
	"PPEGuard/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type PPEHandler struct {
	log        *logrus.Logger
	validator  *validator.Validate
	middleware middleware.Middleware
	ppeService ppeService.IPPEService
	utils      utils.IUtils
	metrics    *metrics.Metrics
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ps ppeService.IPPEService,
	utils utils.IUtils,
	m *metrics.Metrics,
) *PPEHandler {
	if m == nil {
		m = metrics.New()
	}
	return &PPEHandler{
		log:        log,
		validator:  validate,
		middleware: middleware,
		ppeService: ps,
		utils:      utils,
		metrics:    m,
	}
}

func (h *PPEHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	ppe := srv.Group("/ppe")

	ppe.Post("/frames/evaluate", h.middleware.RateLimit(middleware.LimitEvaluate), h.EvaluateFrame)

	sessions := h.middleware.RateLimit(middleware.LimitSessions)
	ppe.Post("/sessions", sessions, h.CreateSession)
	ppe.Post("/sessions/images", h.middleware.RateLimit(middleware.LimitImages), h.CreateImageSession)
	ppe.Get("/sessions", sessions, h.ListSessions)
	ppe.Get("/sessions/:id", sessions, h.GetSession)
	ppe.Get("/sessions/:id/window", sessions, h.GetWindow)
	ppe.Delete("/sessions/:id", sessions, h.DeleteSession)

	live := ppe.Group("/live")
	live.Use("/ws", wsMiddleware)
	live.Get("/ws", websocket.New(h.handleLiveWebSocket))
}
