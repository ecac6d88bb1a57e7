package ton

import (
	"context"
	"fmt"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/ton"
)

// LiteClient reads account balances from a TON lite server.
type LiteClient struct {
	api ton.APIClientWrapped
}

// NewLiteClient connects to a single lite server. key is the server's
// base64 public key.
func NewLiteClient(ctx context.Context, host string, port int, key string) (*LiteClient, error) {
	pool := liteclient.NewConnectionPool()
	addr := fmt.Sprintf("%s:%d", host, port)
	if err := pool.AddConnection(ctx, addr, key); err != nil {
		return nil, fmt.Errorf("lite server connection failed: %w", err)
	}
	return &LiteClient{api: ton.NewAPIClient(pool).WithRetry()}, nil
}

// Balance returns the account balance in TON as a decimal string.
// Uninitialized accounts read as "0".
func (c *LiteClient) Balance(ctx context.Context, rawAddr string) (string, error) {
	a, err := address.ParseRawAddr(rawAddr)
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}

	master, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("masterchain info: %w", err)
	}

	acc, err := c.api.GetAccount(ctx, master, a)
	if err != nil {
		return "", fmt.Errorf("get account: %w", err)
	}
	if !acc.IsActive {
		return "0", nil
	}
	return acc.State.Balance.String(), nil
}
