package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/middleware"
	"github.com/walletchat/backend/internal/services"
	"go.uber.org/zap"
)

type MessageHandler struct {
	messageService *services.MessageService
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewMessageHandler(messageService *services.MessageService, profileService *services.ProfileService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, profileService: profileService, log: log}
}

// ListMessages returns a channel's messages ordered by timestamp ascending.
// GET /channels/:id/messages
func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	channelID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid channel id"})
	}

	messages, err := h.messageService.ListMessages(c.Context(), channelID)
	if err != nil {
		h.log.Error("list messages failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: messages})
}

// SendMessage stores a message from the caller.
// POST /channels/:id/messages
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	channelID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid channel id"})
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	sender := middleware.GetAddress(c)
	m, err := h.messageService.SendMessage(c.Context(), channelID, sender, req.Content, req.Encrypted, req.Signature)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	// A send is presence too.
	_ = h.profileService.Touch(c.Context(), sender)

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: m})
}
