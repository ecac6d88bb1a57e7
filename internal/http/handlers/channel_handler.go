package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/middleware"
	"github.com/walletchat/backend/internal/services"
	"go.uber.org/zap"
)

type ChannelHandler struct {
	channelService *services.ChannelService
	log            *zap.Logger
}

func NewChannelHandler(channelService *services.ChannelService, log *zap.Logger) *ChannelHandler {
	return &ChannelHandler{channelService: channelService, log: log}
}

func (h *ChannelHandler) CreateChannel(c *fiber.Ctx) error {
	var req dto.CreateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	creator := middleware.GetAddress(c)
	ch, err := h.channelService.CreateChannel(c.Context(), creator, req.Name, req.Description, req.IsPrivate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: ch})
}

func (h *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	channels, err := h.channelService.ListChannels(c.Context())
	if err != nil {
		h.log.Error("list channels failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: channels})
}

func (h *ChannelHandler) GetChannel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid channel id"})
	}

	ch, err := h.channelService.GetChannel(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "channel not found"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: ch})
}

func (h *ChannelHandler) JoinChannel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid channel id"})
	}

	addr := middleware.GetAddress(c)
	if err := h.channelService.JoinChannel(c.Context(), id, addr); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *ChannelHandler) LeaveChannel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid channel id"})
	}

	addr := middleware.GetAddress(c)
	if err := h.channelService.LeaveChannel(c.Context(), id, addr); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}
