package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/walletchat/backend/internal/ton"
)

// TON Connect network magic values.
const (
	NetworkIDMainnet = -239
	NetworkIDTestnet = -3
)

// KeyProvider is a file-backed single-key wallet. The address is the raw
// form "0:<sha256(pubkey)>" in workchain 0.
type KeyProvider struct {
	priv    ed25519.PrivateKey
	address string
	network Network
	balance BalanceSource
	events  chan ProviderEvent
}

// NewKeyProvider loads the key at path, creating one when absent. network is
// "mainnet" or "testnet".
func NewKeyProvider(path, network string, balance BalanceSource) (*KeyProvider, error) {
	priv, err := loadOrCreateKey(path)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(priv.Public().(ed25519.PublicKey))

	n := Network{ID: NetworkIDTestnet, Name: "testnet"}
	if strings.EqualFold(network, "mainnet") {
		n = Network{ID: NetworkIDMainnet, Name: "mainnet"}
	}

	return &KeyProvider{
		priv:    priv,
		address: "0:" + hex.EncodeToString(hash[:]),
		network: n,
		balance: balance,
		events:  make(chan ProviderEvent),
	}, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) (string, error) {
	return p.address, nil
}

func (p *KeyProvider) Balance(ctx context.Context, address string) (string, error) {
	if p.balance == nil {
		return "0", nil
	}
	return p.balance.Balance(ctx, address)
}

func (p *KeyProvider) Network() Network {
	return p.network
}

func (p *KeyProvider) Sign(ctx context.Context, address string, message []byte) ([]byte, error) {
	if address != p.address {
		return nil, fmt.Errorf("unknown account %s", address)
	}
	return ed25519.Sign(p.priv, message), nil
}

// Events never fires for a key file, the account cannot change underneath
// the process.
func (p *KeyProvider) Events() <-chan ProviderEvent {
	return p.events
}

// SetBalanceSource attaches a resolver after construction. Used when the
// source needs an authenticated API client that only exists post-connect.
func (p *KeyProvider) SetBalanceSource(b BalanceSource) {
	p.balance = b
}

func (p *KeyProvider) PublicKeyHex() string {
	return hex.EncodeToString(p.priv.Public().(ed25519.PublicKey))
}

// ConnectProof builds a signed connect proof over the server-issued payload.
func (p *KeyProvider) ConnectProof(domain, payload string) (address string, pubKeyHex string, proof ton.Proof, err error) {
	workchain, addrHash, err := ton.ParseRawAddress(p.address)
	if err != nil {
		return "", "", ton.Proof{}, err
	}

	proof = ton.Proof{
		Timestamp: time.Now().Unix(),
		Domain: ton.ProofDomain{
			LengthBytes: len(domain),
			Value:       domain,
		},
		Payload: payload,
	}
	ton.SignProof(p.priv, workchain, addrHash, &proof)

	return p.address, p.PublicKeyHex(), proof, nil
}

func loadOrCreateKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		seed, err := hex.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("corrupt key file %s", path)
		}
		return ed25519.NewKeyFromSeed(seed), nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0o600); err != nil {
		return nil, err
	}

	return ed25519.NewKeyFromSeed(seed), nil
}
