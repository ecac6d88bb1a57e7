package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/walletchat/backend/internal/http/dto"
	"github.com/walletchat/backend/internal/middleware"
	"github.com/walletchat/backend/internal/ton"
	"go.uber.org/zap"
)

type WalletHandler struct {
	lite    *ton.LiteClient // nil when no lite server is configured
	network string
	log     *zap.Logger
}

func NewWalletHandler(lite *ton.LiteClient, network string, log *zap.Logger) *WalletHandler {
	return &WalletHandler{lite: lite, network: network, log: log}
}

// Balance returns the caller's on-chain balance.
// GET /wallet/balance
func (h *WalletHandler) Balance(c *fiber.Ctx) error {
	addr := middleware.GetAddress(c)

	balance := "0"
	if h.lite != nil {
		b, err := h.lite.Balance(c.Context(), addr)
		if err != nil {
			h.log.Warn("balance lookup failed", zap.String("address", addr), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "balance lookup failed"})
		}
		balance = b
	}

	return c.JSON(dto.BalanceResponse{
		Address: addr,
		Balance: balance,
		Network: h.network,
	})
}
