package wallet

import "context"

type EventKind int

const (
	AccountsChanged EventKind = iota
	ChainChanged
)

type ProviderEvent struct {
	Kind EventKind
}

// Provider is the external wallet collaborator: account discovery, balance,
// signing, and change notifications.
type Provider interface {
	RequestAccounts(ctx context.Context) (string, error)
	Balance(ctx context.Context, address string) (string, error)
	Network() Network
	Sign(ctx context.Context, address string, message []byte) ([]byte, error)
	Events() <-chan ProviderEvent
}

// BalanceSource resolves an address to a decimal balance string. Both the
// TON lite client and the API client satisfy it.
type BalanceSource interface {
	Balance(ctx context.Context, address string) (string, error)
}
