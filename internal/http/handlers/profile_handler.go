package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/middleware"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/services"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	log            *zap.Logger
}

func NewProfileHandler(profileService *services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, log: log}
}

// UpdateProfile upserts the caller's profile.
// PUT /profiles/me
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if req.Status != "" && !models.IsValidStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "unknown status"})
	}

	addr := middleware.GetAddress(c)
	p, err := h.profileService.UpdateProfile(c.Context(), addr, req.DisplayName, req.Avatar, req.Status)
	if err != nil {
		h.log.Error("update profile failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	addr := c.Params("address")
	p, err := h.profileService.GetProfile(c.Context(), addr)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "profile not found"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: p})
}

func (h *ProfileHandler) ListProfiles(c *fiber.Ctx) error {
	profiles, err := h.profileService.ListProfiles(c.Context())
	if err != nil {
		h.log.Error("list profiles failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: profiles})
}
