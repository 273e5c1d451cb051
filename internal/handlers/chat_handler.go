package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/makalov0/M-money-web-backoffice--sub000/internal/limiter"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/models"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/services"
	"github.com/makalov0/M-money-web-backoffice--sub000/internal/ws"
	"github.com/makalov0/M-money-web-backoffice--sub000/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actor services.Actor, limit, offset int) ([]models.ConversationDetail, int, error)
	ListMessages(ctx context.Context, actor services.Actor, conversationID int64, limit, offset int) ([]models.ChatMessage, int, error)
	DeleteMessage(ctx context.Context, actor services.Actor, messageID int64) (*services.ChatDelivery, error)
	DeleteConversation(ctx context.Context, actor services.Actor, conversationID int64) error
	CloseConversation(ctx context.Context, actor services.Actor, conversationID int64) error
}

type ChatHandler struct {
	service   chatApplicationService
	hub       *ws.Hub
	router    *ws.Router
	limiter   *limiter.ConnectionLimiter
	jwtSecret string
}

func NewChatHandler(
	service chatApplicationService,
	hub *ws.Hub,
	router *ws.Router,
	connLimiter *limiter.ConnectionLimiter,
	jwtSecret string,
) *ChatHandler {
	return &ChatHandler{
		service:   service,
		hub:       hub,
		router:    router,
		limiter:   connLimiter,
		jwtSecret: jwtSecret,
	}
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	actor, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	conversations, total, err := h.service.ListConversations(c.Context(), actor, limit, (page-1)*limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"conversations": conversations,
		"pagination":    buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	actor, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), actor, conversationID, limit, (page-1)*limit)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	actor, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	delivery, err := h.service.DeleteMessage(c.Context(), actor, messageID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{
		"deleted_message": delivery.Message,
		"conversation":    delivery.Conversation,
	})
}

func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	actor, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.DeleteConversation(c.Context(), actor, conversationID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"deleted": conversationID})
}

func (h *ChatHandler) CloseConversation(c *fiber.Ctx) error {
	actor, err := actorFromLocals(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	if err := h.service.CloseConversation(c.Context(), actor, conversationID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"closed": conversationID})
}

// WebSocketGate resolves the connection identity before the upgrade. A
// missing token means an anonymous customer; a present but invalid token
// refuses the connection outright, with no anonymous fallback.
func (h *ChatHandler) WebSocketGate(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	tokenString := wsToken(c)
	if tokenString == "" {
		if !h.limiter.Allow(c.Context(), "ws:connect:"+c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many connection attempts"})
		}
		c.Locals("identity", ws.Anonymous())
		return c.Next()
	}

	claims, err := utils.ValidateToken(tokenString, h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok || !role.IsStaff() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("identity", ws.Verified(userID, role))
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	identity, ok := conn.Locals("identity").(ws.Identity)
	if !ok {
		_ = conn.Close()
		return
	}

	client := ws.NewClient(h.hub, conn, identity)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.router)
}

func wsToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	authHeader := strings.TrimSpace(c.Get("Authorization"))
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return ""
}

func actorFromLocals(c *fiber.Ctx) (services.Actor, error) {
	userIDValue, _ := c.Locals("user_id").(string)
	roleValue, _ := c.Locals("role").(string)

	userID, err := strconv.ParseInt(userIDValue, 10, 64)
	if err != nil {
		return services.Actor{}, err
	}
	role, ok := models.ParseRole(roleValue)
	if !ok {
		return services.Actor{}, errors.New("unknown role")
	}

	return services.Actor{ID: userID, Role: role}, nil
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrNoEmployeeAvailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "No employee available"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
