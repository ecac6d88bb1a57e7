package chat

import (
	"time"

	"github.com/walletchat/backend/internal/models"
)

// Loading tracks in-flight fetches per collection.
type Loading struct {
	Channels bool
	Messages bool
	Users    bool
}

// State is an immutable snapshot of the chat session. Reducers copy the
// slices and maps they touch, callers can hold a snapshot without locking.
type State struct {
	Channels         []models.Channel
	CurrentChannelID string
	Messages         map[string][]models.Message // channel id -> ascending by Timestamp
	Users            map[string]models.UserProfile
	Loading          Loading
	Err              string
}

func initialState() State {
	return State{
		Messages: map[string][]models.Message{},
		Users:    map[string]models.UserProfile{},
	}
}

// CurrentChannel resolves CurrentChannelID against Channels, nil when no
// channel is selected.
func (s State) CurrentChannel() *models.Channel {
	if s.CurrentChannelID == "" {
		return nil
	}
	for i := range s.Channels {
		if s.Channels[i].ID.String() == s.CurrentChannelID {
			c := s.Channels[i]
			return &c
		}
	}
	return nil
}

type action interface{ isChatAction() }

type setChannels struct{ channels []models.Channel }

type setCurrent struct{ channelID string }

type setMessages struct {
	channelID string
	messages  []models.Message
}

type addMessage struct{ message models.Message }

type channelCreated struct{ channel models.Channel }

type memberJoined struct {
	channelID string
	address   string
}

type memberLeft struct {
	channelID string
	address   string
}

type upsertUser struct{ user models.UserProfile }

type setUsers struct{ users []models.UserProfile }

type setLoading struct {
	what string // "channels", "messages", "users"
	on   bool
}

type setError struct{ msg string }

func (setChannels) isChatAction()    {}
func (setCurrent) isChatAction()     {}
func (setMessages) isChatAction()    {}
func (addMessage) isChatAction()     {}
func (channelCreated) isChatAction() {}
func (memberJoined) isChatAction()   {}
func (memberLeft) isChatAction()     {}
func (upsertUser) isChatAction()     {}
func (setUsers) isChatAction()       {}
func (setLoading) isChatAction()     {}
func (setError) isChatAction()       {}

func reduce(s State, a action) State {
	switch a := a.(type) {
	case setChannels:
		s.Channels = a.channels
		s.Loading.Channels = false
		return s

	case setCurrent:
		s.CurrentChannelID = a.channelID
		return s

	case setMessages:
		msgs := make(map[string][]models.Message, len(s.Messages)+1)
		for k, v := range s.Messages {
			msgs[k] = v
		}
		msgs[a.channelID] = a.messages
		s.Messages = msgs
		s.Loading.Messages = false
		return s

	case addMessage:
		cid := a.message.ChannelID.String()
		msgs := make(map[string][]models.Message, len(s.Messages)+1)
		for k, v := range s.Messages {
			msgs[k] = v
		}
		msgs[cid] = append(append([]models.Message{}, msgs[cid]...), a.message)
		s.Messages = msgs
		s.Channels = bumpLastMessage(s.Channels, cid, a.message.Timestamp)
		return s

	case channelCreated:
		for _, c := range s.Channels {
			if c.ID == a.channel.ID {
				return s
			}
		}
		s.Channels = append(append([]models.Channel{}, s.Channels...), a.channel)
		return s

	case memberJoined:
		s.Channels = mapChannel(s.Channels, a.channelID, func(c models.Channel) models.Channel {
			if c.HasParticipant(a.address) {
				return c
			}
			c.Participants = append(append([]string{}, c.Participants...), a.address)
			return c
		})
		return s

	case memberLeft:
		s.Channels = mapChannel(s.Channels, a.channelID, func(c models.Channel) models.Channel {
			out := make([]string, 0, len(c.Participants))
			for _, p := range c.Participants {
				if p != a.address {
					out = append(out, p)
				}
			}
			c.Participants = out
			return c
		})
		return s

	case upsertUser:
		users := make(map[string]models.UserProfile, len(s.Users)+1)
		for k, v := range s.Users {
			users[k] = v
		}
		users[a.user.Address] = a.user
		s.Users = users
		return s

	case setUsers:
		users := make(map[string]models.UserProfile, len(a.users))
		for _, u := range a.users {
			users[u.Address] = u
		}
		s.Users = users
		s.Loading.Users = false
		return s

	case setLoading:
		switch a.what {
		case "channels":
			s.Loading.Channels = a.on
		case "messages":
			s.Loading.Messages = a.on
		case "users":
			s.Loading.Users = a.on
		}
		return s

	case setError:
		s.Err = a.msg
		return s

	default:
		return s
	}
}

func bumpLastMessage(channels []models.Channel, channelID string, tsMillis int64) []models.Channel {
	ts := time.UnixMilli(tsMillis)
	return mapChannel(channels, channelID, func(c models.Channel) models.Channel {
		if ts.After(c.LastMessageAt) {
			c.LastMessageAt = ts
		}
		return c
	})
}

func mapChannel(channels []models.Channel, channelID string, fn func(models.Channel) models.Channel) []models.Channel {
	out := make([]models.Channel, len(channels))
	for i, c := range channels {
		if c.ID.String() == channelID {
			c = fn(c)
		}
		out[i] = c
	}
	return out
}
