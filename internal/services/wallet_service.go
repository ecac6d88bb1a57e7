package services

import (
	"context"
	"fmt"

	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/repositories"
	"github.com/walletchat/backend/internal/ton"
	"go.uber.org/zap"
)

type WalletService struct {
	walletRepo *repositories.WalletRepo
	cfg        *config.Config
	log        *zap.Logger
}

func NewWalletService(walletRepo *repositories.WalletRepo, cfg *config.Config, log *zap.Logger) *WalletService {
	return &WalletService{walletRepo: walletRepo, cfg: cfg, log: log}
}

// GeneratePayload creates a nonce the wallet must embed in its connect proof.
func (s *WalletService) GeneratePayload(ctx context.Context) (string, error) {
	p, err := s.walletRepo.CreateProofPayload(ctx, s.cfg.ProofTTL)
	if err != nil {
		return "", fmt.Errorf("failed to create proof payload: %w", err)
	}
	return p.Payload, nil
}

type ConnectRequest struct {
	Address   string    `json:"address"` // raw: "0:abc..."
	Network   string    `json:"network"` // mainnet/testnet
	PublicKey string    `json:"public_key"`
	Proof     ton.Proof `json:"proof"`
}

// VerifyConnect validates a wallet connect proof and returns the proven
// address. The nonce is consumed first so a captured proof cannot be
// replayed.
func (s *WalletService) VerifyConnect(ctx context.Context, req ConnectRequest) (string, error) {
	if _, err := s.walletRepo.ConsumeProofPayload(ctx, req.Proof.Payload); err != nil {
		return "", fmt.Errorf("invalid or expired proof payload: %w", err)
	}

	workchain, addrHash, err := ton.ParseRawAddress(req.Address)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}

	if req.Network != "" && req.Network != s.cfg.TONNetwork {
		return "", fmt.Errorf("network mismatch: expected %s, got %s", s.cfg.TONNetwork, req.Network)
	}

	if err := ton.VerifyProof(req.PublicKey, addrHash, workchain, req.Proof, s.cfg.ProofAllowedDomains); err != nil {
		return "", fmt.Errorf("proof verification failed: %w", err)
	}

	return req.Address, nil
}
