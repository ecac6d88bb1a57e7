package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrProviderUnavailable = errors.New("no wallet provider available")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrSigningFailed       = errors.New("signing failed")
)

// Session owns the wallet connection state. All transitions go through the
// pure reducer; provider calls happen outside the lock and dispatch their
// results as actions.
type Session struct {
	mu       sync.Mutex
	state    State
	provider Provider
	log      *zap.Logger

	watchOnce sync.Once
}

func NewSession(provider Provider, log *zap.Logger) *Session {
	return &Session{
		state:    initialState(),
		provider: provider,
		log:      log,
	}
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) dispatch(a action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	s.mu.Unlock()
}

// Connect acquires an account from the provider and transitions to the
// connected state. On provider failure the session stays disconnected with
// the failure recorded. Provider change events re-run Disconnect+Connect.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		s.dispatch(connectFail{msg: "no wallet provider found"})
		return ErrProviderUnavailable
	}

	s.dispatch(connectStart{})

	address, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.dispatch(connectFail{msg: "failed to connect to wallet"})
		return fmt.Errorf("request accounts: %w", err)
	}

	balance, err := s.provider.Balance(ctx, address)
	if err != nil {
		s.log.Warn("balance lookup failed on connect", zap.Error(err))
		balance = "0"
	}

	s.dispatch(connectOK{
		address: address,
		balance: balance,
		network: s.provider.Network(),
	})

	s.watchOnce.Do(func() { go s.watchProvider() })

	return nil
}

// Disconnect resets to the initial disconnected state. Idempotent.
func (s *Session) Disconnect() {
	s.dispatch(disconnected{})
}

// SignMessage asks the provider to sign text with the connected account.
func (s *Session) SignMessage(ctx context.Context, text string) (string, error) {
	st := s.State()
	if !st.Connected || st.Address == "" {
		return "", ErrNotConnected
	}

	sig, err := s.provider.Sign(ctx, st.Address, []byte(text))
	if err != nil {
		s.dispatch(signFail{msg: "failed to sign message"})
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}

	return hex.EncodeToString(sig), nil
}

// RefreshBalance re-reads the balance for the connected account.
func (s *Session) RefreshBalance(ctx context.Context) error {
	st := s.State()
	if !st.Connected {
		return ErrNotConnected
	}

	balance, err := s.provider.Balance(ctx, st.Address)
	if err != nil {
		return err
	}
	s.dispatch(balanceUpdate{balance: balance})
	return nil
}

// watchProvider re-runs the connect transition whenever the provider reports
// an account or network change.
func (s *Session) watchProvider() {
	for ev := range s.provider.Events() {
		s.log.Info("wallet provider event", zap.Int("kind", int(ev.Kind)))
		s.Disconnect()
		if err := s.Connect(context.Background()); err != nil {
			s.log.Warn("reconnect after provider event failed", zap.Error(err))
		}
	}
}
