package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeProvider struct {
	address     string
	balance     string
	network     Network
	accountsErr error
	balanceErr  error
	signErr     error
	events      chan ProviderEvent
	signCalls   int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		address: "0:abc123",
		balance: "1000000000",
		network: Network{ID: NetworkIDTestnet, Name: "testnet"},
		events:  make(chan ProviderEvent, 1),
	}
}

func (f *fakeProvider) RequestAccounts(ctx context.Context) (string, error) {
	if f.accountsErr != nil {
		return "", f.accountsErr
	}
	return f.address, nil
}

func (f *fakeProvider) Balance(ctx context.Context, address string) (string, error) {
	if f.balanceErr != nil {
		return "", f.balanceErr
	}
	return f.balance, nil
}

func (f *fakeProvider) Network() Network { return f.network }

func (f *fakeProvider) Sign(ctx context.Context, address string, message []byte) ([]byte, error) {
	f.signCalls++
	if f.signErr != nil {
		return nil, f.signErr
	}
	return []byte("sig:" + string(message)), nil
}

func (f *fakeProvider) Events() <-chan ProviderEvent { return f.events }

func TestSessionConnect(t *testing.T) {
	p := newFakeProvider()
	s := NewSession(p, zap.NewNop())

	if st := s.State(); st.Connected || st.Connecting {
		t.Fatalf("fresh session not disconnected: %+v", st)
	}

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	st := s.State()
	if !st.Connected || st.Connecting {
		t.Fatalf("bad state after connect: %+v", st)
	}
	if st.Address != p.address {
		t.Errorf("address = %q, want %q", st.Address, p.address)
	}
	if st.Balance != p.balance {
		t.Errorf("balance = %q, want %q", st.Balance, p.balance)
	}
	if st.Network == nil || st.Network.Name != "testnet" {
		t.Errorf("network = %+v, want testnet", st.Network)
	}
	if st.Err != "" {
		t.Errorf("unexpected error %q", st.Err)
	}
}

func TestSessionConnectNoProvider(t *testing.T) {
	s := NewSession(nil, zap.NewNop())

	err := s.Connect(context.Background())
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}

	st := s.State()
	if st.Connected || st.Connecting {
		t.Fatalf("session must stay disconnected: %+v", st)
	}
	if st.Err == "" {
		t.Error("failure not recorded in state")
	}
}

func TestSessionConnectAccountsFailure(t *testing.T) {
	p := newFakeProvider()
	p.accountsErr = errors.New("user rejected")
	s := NewSession(p, zap.NewNop())

	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	st := s.State()
	if st.Connected || st.Connecting {
		t.Fatalf("session must stay disconnected: %+v", st)
	}
	if st.Err != "failed to connect to wallet" {
		t.Errorf("err message = %q", st.Err)
	}
}

func TestSessionConnectBalanceFailure(t *testing.T) {
	p := newFakeProvider()
	p.balanceErr = errors.New("rpc down")
	s := NewSession(p, zap.NewNop())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	st := s.State()
	if !st.Connected {
		t.Fatal("balance failure must not block the connection")
	}
	if st.Balance != "0" {
		t.Errorf("balance = %q, want 0", st.Balance)
	}
}

func TestSessionDisconnectIdempotent(t *testing.T) {
	p := newFakeProvider()
	s := NewSession(p, zap.NewNop())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	s.Disconnect()
	s.Disconnect()

	st := s.State()
	if st.Connected || st.Connecting || st.Address != "" {
		t.Fatalf("not reset: %+v", st)
	}
	if st.Balance != "0" {
		t.Errorf("balance = %q, want 0", st.Balance)
	}
}

func TestSessionSignMessage(t *testing.T) {
	p := newFakeProvider()
	s := NewSession(p, zap.NewNop())

	if _, err := s.SignMessage(context.Background(), "hello"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if p.signCalls != 0 {
		t.Fatal("provider must not be asked to sign while disconnected")
	}

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	sig, err := s.SignMessage(context.Background(), "hello")
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	if sig != hex.EncodeToString([]byte("sig:hello")) {
		t.Errorf("sig = %q", sig)
	}

	p.signErr = errors.New("user rejected")
	if _, err := s.SignMessage(context.Background(), "hello"); !errors.Is(err, ErrSigningFailed) {
		t.Fatalf("err = %v, want ErrSigningFailed", err)
	}
	if st := s.State(); !st.Connected {
		t.Fatal("signing failure must not drop the connection")
	}
}

func TestSessionRefreshBalance(t *testing.T) {
	p := newFakeProvider()
	s := NewSession(p, zap.NewNop())

	if err := s.RefreshBalance(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	p.balance = "42"
	if err := s.RefreshBalance(context.Background()); err != nil {
		t.Fatalf("RefreshBalance: %v", err)
	}
	if st := s.State(); st.Balance != "42" {
		t.Errorf("balance = %q, want 42", st.Balance)
	}
}

func TestSessionProviderEventReconnects(t *testing.T) {
	p := newFakeProvider()
	s := NewSession(p, zap.NewNop())

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	p.address = "0:def456"
	p.events <- ProviderEvent{Kind: AccountsChanged}

	deadline := time.After(2 * time.Second)
	for {
		if st := s.State(); st.Connected && st.Address == "0:def456" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session did not re-run connect: %+v", s.State())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestStateNeverConnectedAndConnecting(t *testing.T) {
	actions := []action{
		connectStart{},
		connectOK{address: "0:a", balance: "1", network: Network{Name: "testnet"}},
		connectStart{},
		connectFail{msg: "boom"},
		connectStart{},
		connectOK{address: "0:b", balance: "2", network: Network{Name: "testnet"}},
		balanceUpdate{balance: "3"},
		signFail{msg: "nope"},
		disconnected{},
	}

	st := initialState()
	for i, a := range actions {
		st = reduce(st, a)
		if st.Connected && st.Connecting {
			t.Fatalf("step %d: connected and connecting both true: %+v", i, st)
		}
	}
}
