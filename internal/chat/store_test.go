package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletchat/backend/internal/dm"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/quota"
	"github.com/walletchat/backend/internal/wallet"
)

type testProvider struct {
	events  chan wallet.ProviderEvent
	signErr error
}

func (p *testProvider) RequestAccounts(ctx context.Context) (string, error) {
	return "0:aaaa", nil
}
func (p *testProvider) Balance(ctx context.Context, address string) (string, error) {
	return "0", nil
}
func (p *testProvider) Network() wallet.Network {
	return wallet.Network{ID: wallet.NetworkIDTestnet, Name: "testnet"}
}
func (p *testProvider) Sign(ctx context.Context, address string, message []byte) ([]byte, error) {
	if p.signErr != nil {
		return nil, p.signErr
	}
	return []byte("sig"), nil
}
func (p *testProvider) Events() <-chan wallet.ProviderEvent { return p.events }

type fakeBackend struct {
	mu       sync.Mutex
	channels map[string]*models.Channel
	messages map[string][]models.Message
	inserts  int
	fail     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		channels: map[string]*models.Channel{},
		messages: map[string][]models.Message{},
	}
}

func (b *fakeBackend) ListChannels(ctx context.Context) ([]models.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	out := make([]models.Channel, 0, len(b.channels))
	for _, c := range b.channels {
		out = append(out, *c)
	}
	return out, nil
}

func (b *fakeBackend) CreateChannel(ctx context.Context, name, description string, isPrivate bool) (models.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return models.Channel{}, b.fail
	}
	c := models.Channel{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		IsPrivate:    isPrivate,
		CreatedBy:    "0:aaaa",
		Participants: []string{"0:aaaa"},
		CreatedAt:    time.Now(),
	}
	b.channels[c.ID.String()] = &c
	return c, nil
}

func (b *fakeBackend) JoinChannel(ctx context.Context, channelID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.channels[channelID]; ok {
		c.Participants = append(c.Participants, "0:aaaa")
	}
	return b.fail
}

func (b *fakeBackend) LeaveChannel(ctx context.Context, channelID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	c, ok := b.channels[channelID]
	if !ok {
		return nil
	}
	out := c.Participants[:0]
	for _, p := range c.Participants {
		if p != "0:aaaa" {
			out = append(out, p)
		}
	}
	c.Participants = out
	return nil
}

func (b *fakeBackend) ListMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	return append([]models.Message{}, b.messages[channelID]...), nil
}

func (b *fakeBackend) InsertMessage(ctx context.Context, channelID, content string, encrypted bool, signature *string) (models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return models.Message{}, b.fail
	}
	b.inserts++
	m := models.Message{
		ID:        uuid.New(),
		ChannelID: uuid.MustParse(channelID),
		Sender:    "0:aaaa",
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Encrypted: encrypted,
		Signature: signature,
	}
	b.messages[channelID] = append(b.messages[channelID], m)
	return m, nil
}

func (b *fakeBackend) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	return nil, b.fail
}

func (b *fakeBackend) UpsertProfile(ctx context.Context, displayName, avatar *string, status string) (models.UserProfile, error) {
	if b.fail != nil {
		return models.UserProfile{}, b.fail
	}
	return models.UserProfile{Address: "0:aaaa", DisplayName: displayName, Avatar: avatar, Status: status, LastSeen: time.Now()}, nil
}

type fakeRealtime struct {
	mu        sync.Mutex
	active    map[string]int
	cancelled map[string]int
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{active: map[string]int{}, cancelled: map[string]int{}}
}

func (r *fakeRealtime) Subscribe(ctx context.Context, channelID string, fn func(models.Message)) (func(), error) {
	r.mu.Lock()
	r.active[channelID]++
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.active[channelID]--
		r.cancelled[channelID]++
		r.mu.Unlock()
	}, nil
}

func (r *fakeRealtime) activeCount(channelID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[channelID]
}

func newTestStore(t *testing.T) (*Store, *fakeBackend, *fakeRealtime, *quota.Guard) {
	t.Helper()

	guard, err := quota.Open(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { guard.Close() })

	session := wallet.NewSession(&testProvider{events: make(chan wallet.ProviderEvent)}, zap.NewNop())
	if err := session.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	backend := newFakeBackend()
	realtime := newFakeRealtime()
	store := NewStore(backend, realtime, guard, session, time.Second, zap.NewNop())
	t.Cleanup(store.Close)

	return store, backend, realtime, guard
}

func TestCreateChannelSelectsIt(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	ch, err := store.CreateChannel(ctx, "general", "", false)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	st := store.State()
	if st.CurrentChannelID != ch.ID.String() {
		t.Errorf("current = %q, want %q", st.CurrentChannelID, ch.ID)
	}
	if got := st.CurrentChannel(); got == nil || got.Name != "general" {
		t.Errorf("CurrentChannel = %+v", got)
	}
	if len(st.Channels) != 1 {
		t.Errorf("channels = %d, want 1", len(st.Channels))
	}
}

func TestCreateChannelValidation(t *testing.T) {
	store, backend, _, _ := newTestStore(t)

	if _, err := store.CreateChannel(context.Background(), "   ", "", false); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if len(backend.channels) != 0 {
		t.Error("backend must not be called for blank names")
	}
}

func TestSendMessageQuota(t *testing.T) {
	store, backend, _, guard := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateChannel(ctx, "general", "", false); err != nil {
		t.Fatal(err)
	}
	if err := guard.CheckAndReserve(quota.DailyLimit - 1); err != nil {
		t.Fatal(err)
	}
	inserts := backend.inserts

	// Two characters do not fit in the single remaining one.
	if err := store.SendMessage(ctx, "hi"); !errors.Is(err, quota.ErrExceeded) {
		t.Fatalf("err = %v, want ErrExceeded", err)
	}
	if got, err := guard.Used(); err != nil || got != quota.DailyLimit-1 {
		t.Fatalf("used = %d (%v), rejection must not consume quota", got, err)
	}
	if backend.inserts != inserts {
		t.Error("rejected message must not reach the backend")
	}

	// One character fits exactly.
	if err := store.SendMessage(ctx, "y"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if got, _ := guard.Used(); got != quota.DailyLimit {
		t.Errorf("used = %d, want %d", got, quota.DailyLimit)
	}
}

func TestSendMessageNoOps(t *testing.T) {
	store, backend, _, _ := newTestStore(t)
	ctx := context.Background()

	// No channel selected.
	if err := store.SendMessage(ctx, "hello"); err != nil {
		t.Fatalf("no-op returned %v", err)
	}

	if _, err := store.CreateChannel(ctx, "general", "", false); err != nil {
		t.Fatal(err)
	}
	inserts := backend.inserts

	// Blank content.
	if err := store.SendMessage(ctx, "   "); err != nil {
		t.Fatalf("no-op returned %v", err)
	}
	if backend.inserts != inserts {
		t.Error("blank content must not reach the backend")
	}
}

func TestFetchMessagesReplacesSubscription(t *testing.T) {
	store, backend, realtime, _ := newTestStore(t)
	ctx := context.Background()

	ch, err := backend.CreateChannel(ctx, "general", "", false)
	if err != nil {
		t.Fatal(err)
	}
	cid := ch.ID.String()

	if err := store.FetchMessages(ctx, cid); err != nil {
		t.Fatal(err)
	}
	if err := store.FetchMessages(ctx, cid); err != nil {
		t.Fatal(err)
	}

	if n := realtime.activeCount(cid); n != 1 {
		t.Errorf("active subscriptions = %d, want 1", n)
	}
	if n := realtime.cancelled[cid]; n != 1 {
		t.Errorf("cancelled = %d, want 1", n)
	}
}

func TestLeaveCurrentChannelClearsSelection(t *testing.T) {
	store, backend, realtime, _ := newTestStore(t)
	ctx := context.Background()

	ch, err := store.CreateChannel(ctx, "general", "", false)
	if err != nil {
		t.Fatal(err)
	}
	cid := ch.ID.String()

	if err := store.LeaveChannel(ctx, cid); err != nil {
		t.Fatal(err)
	}

	st := store.State()
	if st.CurrentChannelID != "" {
		t.Errorf("current = %q, want cleared", st.CurrentChannelID)
	}
	for _, c := range st.Channels {
		if c.ID == ch.ID && c.HasParticipant("0:aaaa") {
			t.Error("still a participant after leave")
		}
	}
	if n := realtime.activeCount(cid); n != 0 {
		t.Errorf("active subscriptions = %d, want 0", n)
	}
	if backend.channels[cid].HasParticipant("0:aaaa") {
		t.Error("backend still lists the participant")
	}
}

func TestFetchChannelsRequiresWallet(t *testing.T) {
	guard, err := quota.Open(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { guard.Close() })

	backend := newFakeBackend()
	if _, err := backend.CreateChannel(context.Background(), "general", "", false); err != nil {
		t.Fatal(err)
	}

	// Session exists but was never connected.
	session := wallet.NewSession(&testProvider{events: make(chan wallet.ProviderEvent)}, zap.NewNop())
	store := NewStore(backend, newFakeRealtime(), guard, session, time.Second, zap.NewNop())
	t.Cleanup(store.Close)

	if err := store.FetchChannels(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	if got := len(store.State().Channels); got != 0 {
		t.Errorf("channels = %d, want none while disconnected", got)
	}
}

// gatedBackend lets a test hold one ListMessages call open while another
// completes.
type gatedBackend struct {
	*fakeBackend
	results  [][]models.Message
	gates    []chan struct{}
	entered  chan int
	callsMu  sync.Mutex
	numCalls int
}

func (b *gatedBackend) ListMessages(ctx context.Context, channelID string) ([]models.Message, error) {
	b.callsMu.Lock()
	i := b.numCalls
	b.numCalls++
	b.callsMu.Unlock()

	b.entered <- i
	<-b.gates[i]
	return b.results[i], nil
}

func TestOverlappingFetchMessagesLastWriteWins(t *testing.T) {
	guard, err := quota.Open(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { guard.Close() })

	session := wallet.NewSession(&testProvider{events: make(chan wallet.ProviderEvent)}, zap.NewNop())
	if err := session.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	cid := uuid.New()
	older := []models.Message{{ID: uuid.New(), ChannelID: cid, Sender: "0:bbbb", Content: "old", Timestamp: 1}}
	newer := []models.Message{
		{ID: uuid.New(), ChannelID: cid, Sender: "0:bbbb", Content: "new-1", Timestamp: 2},
		{ID: uuid.New(), ChannelID: cid, Sender: "0:bbbb", Content: "new-2", Timestamp: 3},
	}

	backend := &gatedBackend{
		fakeBackend: newFakeBackend(),
		results:     [][]models.Message{older, newer},
		gates:       []chan struct{}{make(chan struct{}), make(chan struct{})},
		entered:     make(chan int, 2),
	}

	store := NewStore(backend, nil, guard, session, 5*time.Second, zap.NewNop())
	t.Cleanup(store.Close)

	// First fetch blocks inside the backend.
	done := make(chan error, 1)
	go func() { done <- store.FetchMessages(context.Background(), cid.String()) }()
	<-backend.entered

	// Second fetch starts and finishes while the first is still in flight.
	close(backend.gates[1])
	go func() {
		if err := store.FetchMessages(context.Background(), cid.String()); err != nil {
			t.Error(err)
		}
	}()
	<-backend.entered

	deadline := time.After(2 * time.Second)
	for len(store.State().Messages[cid.String()]) != 2 {
		select {
		case <-deadline:
			t.Fatal("second fetch never landed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Now the stale first response arrives last and wins the keyed slot.
	close(backend.gates[0])
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	got := store.State().Messages[cid.String()]
	if len(got) != 1 || got[0].Content != "old" {
		t.Fatalf("messages = %+v, want the later-completing response to replace the slot", got)
	}
}

func TestSendSignedFailureKeepsQuota(t *testing.T) {
	guard, err := quota.Open(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { guard.Close() })

	provider := &testProvider{events: make(chan wallet.ProviderEvent)}
	session := wallet.NewSession(provider, zap.NewNop())
	if err := session.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	backend := newFakeBackend()
	store := NewStore(backend, newFakeRealtime(), guard, session, time.Second, zap.NewNop())
	t.Cleanup(store.Close)

	if _, err := store.CreateChannel(context.Background(), "general", "", false); err != nil {
		t.Fatal(err)
	}

	provider.signErr = errors.New("user rejected")
	if err := store.SendSigned(context.Background(), "hello"); !errors.Is(err, wallet.ErrSigningFailed) {
		t.Fatalf("err = %v, want ErrSigningFailed", err)
	}

	if used, err := guard.Used(); err != nil || used != 0 {
		t.Fatalf("used = %d (%v), refused signature must not burn quota", used, err)
	}
	if backend.inserts != 0 {
		t.Error("unsigned message reached the backend")
	}
}

func TestCollaboratorFailure(t *testing.T) {
	store, backend, _, _ := newTestStore(t)
	ctx := context.Background()

	backend.fail = errors.New("503")
	if err := store.FetchChannels(ctx); !errors.Is(err, ErrCollaborator) {
		t.Fatalf("err = %v, want ErrCollaborator", err)
	}

	st := store.State()
	if st.Err == "" {
		t.Error("failure not recorded in state")
	}
	if st.Loading.Channels {
		t.Error("loading flag stuck after failure")
	}
}

func TestAppendMessageDropsMalformed(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	store.AppendMessage(models.Message{ID: uuid.New()}) // no channel, no sender
	store.AppendMessage(models.Message{
		ID: uuid.New(), ChannelID: uuid.New(), Sender: "0:bbbb", // no timestamp
	})

	for cid, msgs := range store.State().Messages {
		if len(msgs) != 0 {
			t.Errorf("channel %s holds %d malformed messages", cid, len(msgs))
		}
	}
}

func TestAppendMessageDedupes(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	msg := models.Message{
		ID:        uuid.New(),
		ChannelID: uuid.New(),
		Sender:    "0:bbbb",
		Content:   "once",
		Timestamp: time.Now().UnixMilli(),
	}
	store.AppendMessage(msg)
	store.AppendMessage(msg)

	if got := store.State().Messages[msg.ChannelID.String()]; len(got) != 1 {
		t.Errorf("messages = %d, want 1", len(got))
	}
}

func TestSendEncryptedRoundTrip(t *testing.T) {
	store, _, _, _ := newTestStore(t)
	ctx := context.Background()

	alice, err := dm.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	bob, err := dm.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	aliceConv := dm.OpenConversation(alice, bob.Public)
	bobConv := dm.OpenConversation(bob, alice.Public)

	ch, err := store.CreateChannel(ctx, "dm-alice-bob", "", true)
	if err != nil {
		t.Fatal(err)
	}
	cid := ch.ID.String()

	if err := store.SendEncrypted(ctx, cid, aliceConv, "hush"); err != nil {
		t.Fatalf("SendEncrypted: %v", err)
	}

	stored := store.State().Messages[cid]
	if len(stored) != 1 || !stored[0].Encrypted || stored[0].Content == "hush" {
		t.Fatalf("plaintext leaked or message missing: %+v", stored)
	}

	opened := store.DecryptedMessages(cid, bobConv)
	if len(opened) != 1 || opened[0].Content != "hush" {
		t.Fatalf("decrypt failed: %+v", opened)
	}

	// A third party's key must not see the content.
	eve, _ := dm.GenerateKeyPair()
	eveConv := dm.OpenConversation(eve, alice.Public)
	if got := store.DecryptedMessages(cid, eveConv); len(got) != 0 {
		t.Fatalf("foreign key decrypted %d messages", len(got))
	}
}

func TestUpdateProfileValidatesStatus(t *testing.T) {
	store, _, _, _ := newTestStore(t)

	if err := store.UpdateProfile(context.Background(), nil, nil, "invisible"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if err := store.UpdateProfile(context.Background(), nil, nil, models.StatusAway); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u, ok := store.State().Users["0:aaaa"]; !ok || u.Status != models.StatusAway {
		t.Errorf("profile not folded into state: %+v", u)
	}
}
