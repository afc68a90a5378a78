package handler

import (
	"errors"
	"strings"

	"rfp-answer-engine/internal/pkg/logger"
	"rfp-answer-engine/internal/pkg/serverutils"
	"rfp-answer-engine/internal/service"
	internalWS "rfp-answer-engine/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ProgressHandler streams pipeline progress of one project over a websocket.
type ProgressHandler struct {
	questions service.IQuestionService
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewProgressHandler(questions service.IQuestionService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		questions: questions,
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/projects/v1/:projectId/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and hands the connection to the hub.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	// browsers cannot set headers on a websocket handshake, so the query wins
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = strings.TrimPrefix(c.Get("Authorization"), "Bearer ")
	}
	if tokenStr == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "Missing token (query 'token' or header 'Authorization')")
	}

	identity, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("ProgressHandler", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	projectId, err := serverutils.UUIDParam(c, "projectId")
	if err != nil {
		return err
	}
	if err := h.questions.AuthorizeProject(c.UserContext(), projectId, identity.OrgId); err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Project not found")
		}
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ProgressHandler", "Starting websocket session", map[string]interface{}{
			"project_id": projectId,
			"user_id":    identity.UserId,
		})
		internalWS.ServeWs(h.hub, conn, projectId, identity.UserId)
		h.logger.Info("ProgressHandler", "Websocket session ended", map[string]interface{}{
			"project_id": projectId,
			"user_id":    identity.UserId,
		})
	})(c)
}
