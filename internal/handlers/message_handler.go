package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
	"github.com/amanigreeva/Sociosphere-sub001/internal/service"
)

type MessageHandler struct {
	svc *service.ChatService
}

func NewMessageHandler(svc *service.ChatService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// Send appends a message to a conversation the caller belongs to.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	type Req struct {
		ConversationID string           `json:"conversation_id"`
		Text           string           `json:"text"`
		File           *models.FileInfo `json:"file,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.ConversationID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	msg, err := h.svc.SendMessage(c.Context(), callerID(c), req.ConversationID, req.Text, req.File)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": msg})
}

// List returns the conversation history visible to the caller.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	msgs, err := h.svc.ListMessages(c.Context(), c.Params("conversation_id"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// Delete removes a single message the caller sent.
func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.DeleteMessage(c.Context(), c.Params("message_id"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "deleted"})
}
