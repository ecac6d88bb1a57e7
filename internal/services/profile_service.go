package services

import (
	"context"
	"time"

	"github.com/walletchat/backend/internal/events"
	"github.com/walletchat/backend/internal/models"
	"github.com/walletchat/backend/internal/repositories"
	"go.uber.org/zap"
)

type ProfileService struct {
	profileRepo *repositories.ProfileRepo
	publisher   events.Publisher
	log         *zap.Logger
}

func NewProfileService(profileRepo *repositories.ProfileRepo, publisher events.Publisher, log *zap.Logger) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, publisher: publisher, log: log}
}

// UpdateProfile upserts the caller's profile with a fresh last_seen. An
// empty status means online, an update is a presence signal.
func (s *ProfileService) UpdateProfile(ctx context.Context, addr string, displayName, avatar *string, status string) (*models.UserProfile, error) {
	if status == "" {
		status = models.StatusOnline
	}

	p := &models.UserProfile{
		Address:     addr,
		DisplayName: displayName,
		Avatar:      avatar,
		Status:      status,
		LastSeen:    time.Now(),
	}

	if err := s.profileRepo.Upsert(ctx, p); err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.StreamChat, events.Event{
		Type:    events.EventProfileUpdated,
		Payload: map[string]any{"address": addr},
	})

	return p, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, addr string) (*models.UserProfile, error) {
	return s.profileRepo.GetByAddress(ctx, addr)
}

func (s *ProfileService) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	return s.profileRepo.List(ctx)
}

// Touch refreshes last_seen without changing the rest of the profile.
func (s *ProfileService) Touch(ctx context.Context, addr string) error {
	p, err := s.profileRepo.GetByAddress(ctx, addr)
	if err != nil {
		// No profile yet, presence starts when one is created.
		return nil
	}
	p.Status = models.StatusOnline
	p.LastSeen = time.Now()
	return s.profileRepo.Upsert(ctx, p)
}
