package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Notifier is the narrow capability the settlement engine depends on.
// Delivery is best-effort: implementations must never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, category Category, title, message string)
}

// Service persists notifications and fans them out over Redis pub/sub.
// The redis client may be nil; fan-out is then skipped.
type Service struct {
	repo  Repository
	redis *redis.Client
}

// NewService creates notification service
func NewService(repo Repository, redisClient *redis.Client) *Service {
	return &Service{repo: repo, redis: redisClient}
}

// Notify stores a notification and publishes it to the user's channel.
// Errors are logged and swallowed: a failed send must never roll back or
// fail the financial operation that triggered it.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, category Category, title, message string) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Category:  category,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Str("category", string(category)).Msg("failed to store notification")
		return
	}

	s.publish(ctx, n)
}

func (s *Service) publish(ctx context.Context, n *Notification) {
	if s.redis == nil {
		return
	}

	payload, err := json.Marshal(n)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode notification")
		return
	}

	channel := "notifications:" + n.UserID.String()
	if err := s.redis.Publish(ctx, channel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to publish notification")
	}
}

// List returns notifications for user
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByUser(ctx, userID)
}

// MarkAsRead marks single notification as read
func (s *Service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

// MarkAllAsRead marks all notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
