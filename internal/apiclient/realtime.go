package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/walletchat/backend/internal/events"
	"github.com/walletchat/backend/internal/models"
)

// RealtimeFeed delivers message events over the API's websocket endpoint.
// Each subscription holds its own connection, cancel tears it down.
type RealtimeFeed struct {
	client *Client
	log    *zap.Logger
}

func NewRealtimeFeed(client *Client, log *zap.Logger) *RealtimeFeed {
	return &RealtimeFeed{client: client, log: log}
}

type wsCommand struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id"`
}

// Subscribe dials the feed, scopes it to channelID, and invokes fn for every
// new message in that channel until cancel is called or ctx ends.
func (r *RealtimeFeed) Subscribe(ctx context.Context, channelID string, fn func(models.Message)) (func(), error) {
	token := r.client.Token()
	if token == "" {
		return nil, errors.New("not authenticated")
	}

	wsURL := r.client.wsURL + "/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	cmd, _ := json.Marshal(wsCommand{Type: "subscribe", ChannelID: channelID})
	if err := conn.Write(ctx, websocket.MessageText, cmd); err != nil {
		conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, err
	}

	readCtx, cancel := context.WithCancel(ctx)
	go r.readLoop(readCtx, conn, channelID, fn)

	return func() {
		cancel()
		conn.Close(websocket.StatusNormalClosure, "unsubscribed")
	}, nil
}

func (r *RealtimeFeed) readLoop(ctx context.Context, conn *websocket.Conn, channelID string, fn func(models.Message)) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				r.log.Warn("realtime feed closed", zap.String("channel_id", channelID), zap.Error(err))
			}
			return
		}

		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			r.log.Warn("malformed event", zap.Error(err))
			continue
		}
		if ev.Type != events.EventMessageCreated {
			continue
		}
		if cid, _ := ev.Payload["channel_id"].(string); cid != channelID {
			continue
		}

		raw, err := json.Marshal(ev.Payload["message"])
		if err != nil {
			continue
		}
		var msg models.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			r.log.Warn("malformed message payload", zap.Error(err))
			continue
		}

		fn(msg)
	}
}
