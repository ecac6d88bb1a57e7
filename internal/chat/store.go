package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/walletchat/backend/internal/dm"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/quota"
	"github.com/walletchat/backend/internal/wallet"
)

// Backend is the hosted chat service. Every call carries a deadline, failures
// surface as ErrCollaborator.
type Backend interface {
	ListChannels(ctx context.Context) ([]models.Channel, error)
	CreateChannel(ctx context.Context, name, description string, isPrivate bool) (models.Channel, error)
	JoinChannel(ctx context.Context, channelID string) error
	LeaveChannel(ctx context.Context, channelID string) error
	ListMessages(ctx context.Context, channelID string) ([]models.Message, error)
	InsertMessage(ctx context.Context, channelID, content string, encrypted bool, signature *string) (models.Message, error)
	ListProfiles(ctx context.Context) ([]models.UserProfile, error)
	UpsertProfile(ctx context.Context, displayName, avatar *string, status string) (models.UserProfile, error)
}

// Realtime delivers new messages for one channel. The returned cancel stops
// the feed.
type Realtime interface {
	Subscribe(ctx context.Context, channelID string, fn func(models.Message)) (cancel func(), err error)
}

// Store owns the chat session state. Transitions go through the pure reducer,
// collaborator calls happen outside the lock and dispatch their results.
// Subscriptions are keyed by channel: re-fetching a channel replaces its
// feed instead of stacking a second one.
type Store struct {
	mu    sync.Mutex
	state State
	subs  map[string]func()

	backend  Backend
	realtime Realtime
	quota    *quota.Guard
	wallet   *wallet.Session
	log      *zap.Logger
	timeout  time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc

	onAppend func(models.Message)
}

func NewStore(backend Backend, realtime Realtime, guard *quota.Guard, session *wallet.Session, timeout time.Duration, log *zap.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		state:      initialState(),
		subs:       map[string]func(){},
		backend:    backend,
		realtime:   realtime,
		quota:      guard,
		wallet:     session,
		log:        log,
		timeout:    timeout,
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetOnAppend installs a hook fired after every appended message. Used by
// the terminal client to print incoming messages.
func (s *Store) SetOnAppend(fn func(models.Message)) {
	s.mu.Lock()
	s.onAppend = fn
	s.mu.Unlock()
}

func (s *Store) dispatch(a action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	s.mu.Unlock()
}

// call runs one collaborator operation under the per-call deadline.
func (s *Store) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		s.dispatch(setError{msg: op + " failed"})
		return fmt.Errorf("%w: %s: %v", ErrCollaborator, op, err)
	}
	return nil
}

func (s *Store) address() string {
	if s.wallet == nil {
		return ""
	}
	st := s.wallet.State()
	if !st.Connected {
		return ""
	}
	return st.Address
}

// FetchChannels refreshes the channel list. The channel list is only
// addressable by a connected wallet.
func (s *Store) FetchChannels(ctx context.Context) error {
	if s.address() == "" {
		return ErrNotConnected
	}

	s.dispatch(setLoading{what: "channels", on: true})

	var channels []models.Channel
	err := s.call(ctx, "list channels", func(ctx context.Context) error {
		var err error
		channels, err = s.backend.ListChannels(ctx)
		return err
	})
	if err != nil {
		s.dispatch(setLoading{what: "channels", on: false})
		return err
	}

	s.dispatch(setChannels{channels: channels})
	return nil
}

// CreateChannel creates a channel and selects it.
func (s *Store) CreateChannel(ctx context.Context, name, description string, isPrivate bool) (models.Channel, error) {
	if s.address() == "" {
		return models.Channel{}, ErrNotConnected
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Channel{}, fmt.Errorf("%w: channel name required", ErrValidation)
	}

	var ch models.Channel
	err := s.call(ctx, "create channel", func(ctx context.Context) error {
		var err error
		ch, err = s.backend.CreateChannel(ctx, name, description, isPrivate)
		return err
	})
	if err != nil {
		return models.Channel{}, err
	}

	s.dispatch(channelCreated{channel: ch})
	if err := s.SelectChannel(ctx, ch.ID.String()); err != nil {
		return ch, err
	}
	return ch, nil
}

// SelectChannel makes the channel current and loads its messages. An empty
// id clears the selection.
func (s *Store) SelectChannel(ctx context.Context, channelID string) error {
	s.dispatch(setCurrent{channelID: channelID})
	if channelID == "" {
		return nil
	}
	return s.FetchMessages(ctx, channelID)
}

// JoinChannel adds the connected wallet to the channel's participants.
func (s *Store) JoinChannel(ctx context.Context, channelID string) error {
	addr := s.address()
	if addr == "" {
		return ErrNotConnected
	}

	err := s.call(ctx, "join channel", func(ctx context.Context) error {
		return s.backend.JoinChannel(ctx, channelID)
	})
	if err != nil {
		return err
	}

	s.dispatch(memberJoined{channelID: channelID, address: addr})
	return nil
}

// LeaveChannel removes the connected wallet from the channel. Leaving the
// current channel clears the selection and stops its feed.
func (s *Store) LeaveChannel(ctx context.Context, channelID string) error {
	addr := s.address()
	if addr == "" {
		return ErrNotConnected
	}

	err := s.call(ctx, "leave channel", func(ctx context.Context) error {
		return s.backend.LeaveChannel(ctx, channelID)
	})
	if err != nil {
		return err
	}

	s.dispatch(memberLeft{channelID: channelID, address: addr})
	s.unsubscribe(channelID)
	if s.State().CurrentChannelID == channelID {
		s.dispatch(setCurrent{channelID: ""})
	}
	return nil
}

// FetchMessages loads a channel's history and (re)subscribes its feed. A
// second fetch for the same channel cancels the first subscription before
// opening the replacement.
func (s *Store) FetchMessages(ctx context.Context, channelID string) error {
	s.dispatch(setLoading{what: "messages", on: true})

	var messages []models.Message
	err := s.call(ctx, "list messages", func(ctx context.Context) error {
		var err error
		messages, err = s.backend.ListMessages(ctx, channelID)
		return err
	})
	if err != nil {
		s.dispatch(setLoading{what: "messages", on: false})
		return err
	}

	s.dispatch(setMessages{channelID: channelID, messages: messages})

	if s.realtime == nil {
		return nil
	}

	s.unsubscribe(channelID)
	cancel, err := s.realtime.Subscribe(s.rootCtx, channelID, s.AppendMessage)
	if err != nil {
		s.log.Warn("subscribe failed", zap.String("channel_id", channelID), zap.Error(err))
		return fmt.Errorf("%w: subscribe: %v", ErrCollaborator, err)
	}

	s.mu.Lock()
	s.subs[channelID] = cancel
	s.mu.Unlock()
	return nil
}

func (s *Store) unsubscribe(channelID string) {
	s.mu.Lock()
	cancel := s.subs[channelID]
	delete(s.subs, channelID)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// SendMessage submits content to the current channel. Blank content, no
// selected channel, or a disconnected wallet are silent no-ops. The daily
// quota is reserved before the submit, a reservation is not returned if the
// submit then fails.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	return s.send(ctx, content, false)
}

// SendSigned is SendMessage with a wallet signature over the content.
func (s *Store) SendSigned(ctx context.Context, content string) error {
	return s.send(ctx, content, true)
}

func (s *Store) send(ctx context.Context, content string, signed bool) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	channelID := s.State().CurrentChannelID
	if channelID == "" {
		return nil
	}
	if s.address() == "" {
		return nil
	}

	// Sign before reserving so a refused signature does not burn quota.
	var signature *string
	if signed {
		sig, err := s.wallet.SignMessage(ctx, content)
		if err != nil {
			return err
		}
		signature = &sig
	}

	if err := s.quota.CheckAndReserve(utf8.RuneCountInString(content)); err != nil {
		return err
	}

	var msg models.Message
	err := s.call(ctx, "send message", func(ctx context.Context) error {
		var err error
		msg, err = s.backend.InsertMessage(ctx, channelID, content, false, signature)
		return err
	})
	if err != nil {
		return err
	}

	s.AppendMessage(msg)
	return nil
}

// SendEncrypted seals content for a direct conversation and submits the
// ciphertext. The quota charges the plaintext length.
func (s *Store) SendEncrypted(ctx context.Context, channelID string, conv *dm.Conversation, content string) error {
	if content == "" || channelID == "" {
		return nil
	}
	if s.address() == "" {
		return nil
	}

	if err := s.quota.CheckAndReserve(utf8.RuneCountInString(content)); err != nil {
		return err
	}

	sealed := conv.Seal([]byte(content))

	var msg models.Message
	err := s.call(ctx, "send encrypted message", func(ctx context.Context) error {
		var err error
		msg, err = s.backend.InsertMessage(ctx, channelID, sealed, true, nil)
		return err
	})
	if err != nil {
		return err
	}

	s.AppendMessage(msg)
	return nil
}

// DecryptedMessages returns a channel's messages with encrypted content
// opened for conv. Encrypted rows that do not decrypt are dropped, plaintext
// rows pass through.
func (s *Store) DecryptedMessages(channelID string, conv *dm.Conversation) []models.Message {
	msgs := s.State().Messages[channelID]
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Encrypted {
			plain, err := conv.Open(m.Content)
			if err != nil {
				s.log.Debug("dropping undecipherable message", zap.String("id", m.ID.String()))
				continue
			}
			m.Content = string(plain)
		}
		out = append(out, m)
	}
	return out
}

// AppendMessage folds a delivered message into the state. Malformed payloads
// are dropped and logged, duplicates (same id) are ignored.
func (s *Store) AppendMessage(msg models.Message) {
	if msg.ID == uuid.Nil || msg.ChannelID == uuid.Nil || msg.Sender == "" || msg.Timestamp <= 0 {
		s.log.Warn("dropping malformed message",
			zap.String("id", msg.ID.String()),
			zap.String("channel_id", msg.ChannelID.String()))
		return
	}

	s.mu.Lock()
	for _, m := range s.state.Messages[msg.ChannelID.String()] {
		if m.ID == msg.ID {
			s.mu.Unlock()
			return
		}
	}
	s.state = reduce(s.state, addMessage{message: msg})
	hook := s.onAppend
	s.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
}

// FetchUsers refreshes the known profile set.
func (s *Store) FetchUsers(ctx context.Context) error {
	s.dispatch(setLoading{what: "users", on: true})

	var users []models.UserProfile
	err := s.call(ctx, "list profiles", func(ctx context.Context) error {
		var err error
		users, err = s.backend.ListProfiles(ctx)
		return err
	})
	if err != nil {
		s.dispatch(setLoading{what: "users", on: false})
		return err
	}

	s.dispatch(setUsers{users: users})
	return nil
}

// UpdateProfile upserts the connected wallet's profile, last write wins.
func (s *Store) UpdateProfile(ctx context.Context, displayName, avatar *string, status string) error {
	if s.address() == "" {
		return ErrNotConnected
	}
	if !models.IsValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	var profile models.UserProfile
	err := s.call(ctx, "update profile", func(ctx context.Context) error {
		var err error
		profile, err = s.backend.UpsertProfile(ctx, displayName, avatar, status)
		return err
	})
	if err != nil {
		return err
	}

	s.dispatch(upsertUser{user: profile})
	return nil
}

// Close cancels every channel feed.
func (s *Store) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = map[string]func(){}
	s.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	s.rootCancel()
}
