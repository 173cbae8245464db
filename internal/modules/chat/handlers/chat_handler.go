package handlers

import (
	"errors"

	"github.com/chatfront/chatfront-backend/internal/modules/chat/services"
	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	chatService    *services.ChatService
	handoffService *services.HandoffService
}

func NewChatHandler(chatService *services.ChatService, handoffService *services.HandoffService) *ChatHandler {
	return &ChatHandler{
		chatService:    chatService,
		handoffService: handoffService,
	}
}

type userTurnRequest struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

type joinRequest struct {
	AgentName  string `json:"agent_name"`
	GenderHint string `json:"gender_hint,omitempty"`
}

type agentMessageRequest struct {
	Text string `json:"text"`
}

// SubmitTurn handles one visitor message on the widget.
func (h *ChatHandler) SubmitTurn(c *fiber.Ctx) error {
	businessID := c.Params("businessId")
	sessionID := c.Params("sessionId")

	var req userTurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Text == "" && req.ImageURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message text or image is required",
		})
	}

	cc, err := h.chatService.NewChatContext(c.Context(), businessID)
	if errors.Is(err, services.ErrBusinessNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Business not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	result, err := h.chatService.SubmitUserTurn(c.Context(), cc, sessionID, req.Text, req.ImageURL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}

// StartSession seeds a fresh widget session with the persona greeting.
func (h *ChatHandler) StartSession(c *fiber.Ctx) error {
	businessID := c.Params("businessId")
	sessionID := c.Params("sessionId")

	cc, err := h.chatService.NewChatContext(c.Context(), businessID)
	if errors.Is(err, services.ErrBusinessNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Business not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	greeting, err := h.chatService.StartSession(c.Context(), cc, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if greeting == nil {
		return c.JSON(fiber.Map{"greeting": nil})
	}
	return c.JSON(fiber.Map{"greeting": greeting})
}

// ListMessages returns a session's transcript in append order.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	messages, err := h.chatService.History(c.Context(), c.Params("businessId"), c.Params("sessionId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// JoinSession hands the session from the AI to a human agent.
func (h *ChatHandler) JoinSession(c *fiber.Ctx) error {
	var req joinRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.AgentName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "agent_name is required",
		})
	}

	announcement, err := h.handoffService.JoinSession(
		c.Context(), c.Params("businessId"), c.Params("sessionId"), req.AgentName, req.GenderHint)
	if errors.Is(err, services.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Chat session not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"joined":       true,
		"announcement": announcement,
	})
}

// AgentMessage appends a human agent reply to the session.
func (h *ChatHandler) AgentMessage(c *fiber.Ctx) error {
	var req agentMessageRequest
	if err := c.BodyParser(&req); err != nil || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message text is required",
		})
	}

	msg, err := h.handoffService.AgentReply(c.Context(), c.Params("businessId"), c.Params("sessionId"), req.Text)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
