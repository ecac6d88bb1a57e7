package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/walletchat/backend/internal/auth"
	"github.com/walletchat/backend/internal/config"
	"github.com/walletchat/backend/internal/events"
	"go.uber.org/zap"
)

// WSHub fans chat events out to websocket clients. A client subscribes to
// channel ids; message events are delivered only to subscribers of that
// channel, everything else is broadcast.
type WSHub struct {
	cfg        *config.Config
	subscriber events.Subscriber
	log        *zap.Logger
	mu         sync.RWMutex
	conns      map[*websocket.Conn]*wsClient
}

type wsClient struct {
	address  string
	channels map[string]bool
}

type wsCommand struct {
	Type      string `json:"type"` // subscribe / unsubscribe
	ChannelID string `json:"channel_id"`
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:        cfg,
		subscriber: subscriber,
		log:        log,
		conns:      make(map[*websocket.Conn]*wsClient),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	_ = h.subscriber.Subscribe(ctx, events.StreamChat, func(event events.Event) {
		h.dispatch(event)
	})
}

func (h *WSHub) dispatch(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	channelID, _ := event.Payload["channel_id"].(string)
	scoped := event.Type == events.EventMessageCreated

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, client := range h.conns {
		if scoped && !client.channels[channelID] {
			continue
		}
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	client := &wsClient{address: claims.Address, channels: make(map[string]bool)}

	h.mu.Lock()
	h.conns[conn] = client
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var cmd wsCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.log.Debug("malformed ws command", zap.String("address", client.address), zap.Error(err))
			continue
		}

		h.mu.Lock()
		switch cmd.Type {
		case "subscribe":
			client.channels[cmd.ChannelID] = true
		case "unsubscribe":
			delete(client.channels, cmd.ChannelID)
		}
		h.mu.Unlock()
	}
}
