package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/walletchat/backend/internal/events"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/repositories"
	"go.uber.org/zap"
)

type MessageService struct {
	messageRepo *repositories.MessageRepo
	channelRepo *repositories.ChannelRepo
	publisher   events.Publisher
	log         *zap.Logger
}

func NewMessageService(
	messageRepo *repositories.MessageRepo,
	channelRepo *repositories.ChannelRepo,
	publisher events.Publisher,
	log *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		channelRepo: channelRepo,
		publisher:   publisher,
		log:         log,
	}
}

// SendMessage persists the message and publishes it for realtime delivery.
// The stored timestamp is server-assigned.
func (s *MessageService) SendMessage(ctx context.Context, channelID uuid.UUID, sender, content string, encrypted bool, signature *string) (*models.Message, error) {
	if !encrypted {
		content = strings.TrimSpace(content)
	}
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}

	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		return nil, fmt.Errorf("channel not found")
	}

	m := &models.Message{
		ChannelID: channelID,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Encrypted: encrypted,
		Signature: signature,
	}

	if err := s.messageRepo.Insert(ctx, m); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.StreamChat, events.Event{
		Type: events.EventMessageCreated,
		Payload: map[string]any{
			"channel_id": m.ChannelID.String(),
			"message":    m,
		},
	}); err != nil {
		// The message is durable at this point, delivery just degrades to
		// the next full fetch.
		s.log.Warn("failed to publish message event", zap.Error(err))
	}

	return m, nil
}

func (s *MessageService) ListMessages(ctx context.Context, channelID uuid.UUID) ([]models.Message, error) {
	return s.messageRepo.ListByChannel(ctx, channelID)
}
