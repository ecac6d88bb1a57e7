package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/walletchat/backend/internal/auth"
	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	walletService *services.WalletService
	cfg           *config.Config
	log           *zap.Logger
}

func NewAuthHandler(walletService *services.WalletService, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{walletService: walletService, cfg: cfg, log: log}
}

// ProofPayload issues a nonce for the wallet to sign.
// POST /auth/proof-payload
func (h *AuthHandler) ProofPayload(c *fiber.Ctx) error {
	payload, err := h.walletService.GeneratePayload(c.Context())
	if err != nil {
		h.log.Error("failed to generate proof payload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.ProofPayloadResponse{Payload: payload})
}

// Connect exchanges a signed wallet proof for a JWT.
// POST /auth/connect
func (h *AuthHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Address == "" || req.PublicKey == "" || req.Proof.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "address, public_key, and proof.signature are required"})
	}
	if req.Network == "" {
		req.Network = h.cfg.TONNetwork
	}

	address, err := h.walletService.VerifyConnect(c.Context(), services.ConnectRequest{
		Address:   req.Address,
		Network:   req.Network,
		PublicKey: req.PublicKey,
		Proof:     req.Proof,
	})
	if err != nil {
		h.log.Debug("wallet connect failed", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	token, err := auth.GenerateJWT(h.cfg.JWTSecret, address, req.Network, h.cfg.JWTExpiration)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}

	return c.JSON(dto.AuthResponse{
		Token:   token,
		Address: address,
		Network: req.Network,
	})
}
