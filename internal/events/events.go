package events

import "context"

// Event types
const (
	EventMessageCreated = "message_created"
	EventChannelCreated = "channel_created"
	EventMemberJoined   = "member_joined"
	EventMemberLeft     = "member_left"
	EventProfileUpdated = "profile_updated"
)

// StreamChat is the redis pub/sub channel all chat events flow through.
const StreamChat = "events:chat"

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
