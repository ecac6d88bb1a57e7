package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/walletchat/backend/internal/events"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/repositories"
	"go.uber.org/zap"
)

type ChannelService struct {
	channelRepo *repositories.ChannelRepo
	auditRepo   *repositories.AuditRepo
	publisher   events.Publisher
	log         *zap.Logger
}

func NewChannelService(
	channelRepo *repositories.ChannelRepo,
	auditRepo *repositories.AuditRepo,
	publisher events.Publisher,
	log *zap.Logger,
) *ChannelService {
	return &ChannelService{
		channelRepo: channelRepo,
		auditRepo:   auditRepo,
		publisher:   publisher,
		log:         log,
	}
}

func (s *ChannelService) CreateChannel(ctx context.Context, creator, name, description string, isPrivate bool) (*models.Channel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	ch := &models.Channel{
		Name:        name,
		Description: strings.TrimSpace(description),
		IsPrivate:   isPrivate,
		CreatedBy:   creator,
	}

	if err := s.channelRepo.Create(ctx, ch); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorAddress: &creator,
		ActorType:    "user",
		Action:       "channel_created",
		EntityType:   "channel",
		EntityID:     &ch.ID,
	})

	_ = s.publisher.Publish(ctx, events.StreamChat, events.Event{
		Type:    events.EventChannelCreated,
		Payload: map[string]any{"channel_id": ch.ID.String(), "name": ch.Name},
	})

	return ch, nil
}

func (s *ChannelService) ListChannels(ctx context.Context) ([]models.Channel, error) {
	return s.channelRepo.List(ctx)
}

func (s *ChannelService) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	return s.channelRepo.GetByID(ctx, id)
}

func (s *ChannelService) JoinChannel(ctx context.Context, channelID uuid.UUID, addr string) error {
	if _, err := s.channelRepo.GetByID(ctx, channelID); err != nil {
		return fmt.Errorf("channel not found")
	}

	if err := s.channelRepo.AddParticipant(ctx, channelID, addr); err != nil {
		return err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorAddress: &addr,
		ActorType:    "user",
		Action:       "member_joined",
		EntityType:   "channel",
		EntityID:     &channelID,
	})

	return s.publisher.Publish(ctx, events.StreamChat, events.Event{
		Type:    events.EventMemberJoined,
		Payload: map[string]any{"channel_id": channelID.String(), "address": addr},
	})
}

func (s *ChannelService) LeaveChannel(ctx context.Context, channelID uuid.UUID, addr string) error {
	if err := s.channelRepo.RemoveParticipant(ctx, channelID, addr); err != nil {
		return err
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		ActorAddress: &addr,
		ActorType:    "user",
		Action:       "member_left",
		EntityType:   "channel",
		EntityID:     &channelID,
	})

	return s.publisher.Publish(ctx, events.StreamChat, events.Event{
		Type:    events.EventMemberLeft,
		Payload: map[string]any{"channel_id": channelID.String(), "address": addr},
	})
}
