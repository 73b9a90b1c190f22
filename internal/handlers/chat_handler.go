package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/amanigreeva/Sociosphere-sub001/internal/directory"
	"github.com/amanigreeva/Sociosphere-sub001/internal/models"
	"github.com/amanigreeva/Sociosphere-sub001/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
	dir directory.Directory
}

func NewChatHandler(svc *service.ChatService, dir directory.Directory) *ChatHandler {
	return &ChatHandler{svc: svc, dir: dir}
}

// CreateDirect opens (or returns) the direct chat with another user.
func (h *ChatHandler) CreateDirect(c *fiber.Ctx) error {
	type Req struct {
		UserID string `json:"user_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "user_id required"})
	}
	conv, err := h.svc.CreateDirect(c.Context(), callerID(c), req.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(h.decorate(c, conv))
}

func (h *ChatHandler) CreateGroup(c *fiber.Ctx) error {
	type Req struct {
		MemberIDs []string `json:"member_ids"`
		Name      string   `json:"name"`
		Image     string   `json:"image"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}
	conv, err := h.svc.CreateGroup(c.Context(), callerID(c), req.MemberIDs, req.Name, req.Image)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conversation": conv})
}

// List returns the caller's visible conversations, newest activity first.
func (h *ChatHandler) List(c *fiber.Ctx) error {
	convs, err := h.svc.ListConversations(c.Context(), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	out := make([]fiber.Map, 0, len(convs))
	for _, conv := range convs {
		out = append(out, h.decorate(c, conv))
	}
	return c.JSON(fiber.Map{"conversations": out})
}

// GetBetween returns the existing direct chat with :user_id.
func (h *ChatHandler) GetBetween(c *fiber.Ctx) error {
	other := c.Params("user_id")
	conv, err := h.svc.GetConversationBetween(c.Context(), callerID(c), other)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(h.decorate(c, conv))
}

func (h *ChatHandler) Rename(c *fiber.Ctx) error {
	type Req struct {
		Name string `json:"name"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}
	if err := h.svc.Rename(c.Context(), c.Params("conversation_id"), req.Name, callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "renamed"})
}

func (h *ChatHandler) SetGroupImage(c *fiber.Ctx) error {
	type Req struct {
		Image string `json:"image"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Image == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "image required"})
	}
	if err := h.svc.SetGroupImage(c.Context(), c.Params("conversation_id"), req.Image, callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "updated"})
}

func (h *ChatHandler) AddMembers(c *fiber.Ctx) error {
	type Req struct {
		MemberIDs []string `json:"member_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || len(req.MemberIDs) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "member_ids required"})
	}
	conv, err := h.svc.AddMembers(c.Context(), c.Params("conversation_id"), req.MemberIDs, callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"conversation": conv})
}

func (h *ChatHandler) Leave(c *fiber.Ctx) error {
	if err := h.svc.Leave(c.Context(), c.Params("conversation_id"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "left"})
}

// Delete hard-deletes a group (admin only) or hides a direct chat for the
// caller.
func (h *ChatHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("conversation_id"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "deleted"})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.svc.MarkRead(c.Context(), c.Params("conversation_id"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "read"})
}

func (h *ChatHandler) ClearHistory(c *fiber.Ctx) error {
	if err := h.svc.ClearHistory(c.Context(), c.Params("conversation_id"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "cleared"})
}

// decorate attaches the peer's directory attributes to a direct chat so the
// client can render the list without extra round trips. Lookup failures are
// tolerated; the conversation still renders.
func (h *ChatHandler) decorate(c *fiber.Ctx, conv *models.Conversation) fiber.Map {
	out := fiber.Map{"conversation": conv}
	if conv.IsGroup {
		return out
	}
	peerID := conv.OtherMember(callerID(c))
	if peerID == "" {
		return out
	}
	if peer, err := h.dir.Lookup(c.Context(), peerID); err == nil {
		out["peer"] = peer
	}
	return out
}
