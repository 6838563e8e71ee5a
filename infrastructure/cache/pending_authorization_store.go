package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

const pendingAuthPrefix = "pendingauth:"

// PendingAuthorizationStore keeps in-flight authorization state in redis. The
// key TTL is the single source of expiry; GETDEL makes consumption atomic so
// a replayed callback cannot reuse a state.
type PendingAuthorizationStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewPendingAuthorizationStore(client *redis.Client) *PendingAuthorizationStore {
	return &PendingAuthorizationStore{client: client, now: time.Now}
}

func (s *PendingAuthorizationStore) Save(ctx context.Context, pending *model.PendingAuthorization) error {
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = s.now().UTC()
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending authorization: %w", err)
	}
	if err := s.client.Set(ctx, pendingAuthPrefix+pending.State, payload, model.PendingAuthorizationTTL).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while saving pending authorization")
		return err
	}
	return nil
}

func (s *PendingAuthorizationStore) Consume(ctx context.Context, state string) (*model.PendingAuthorization, error) {
	payload, err := s.client.GetDel(ctx, pendingAuthPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrInvalidOrExpiredState
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while consuming pending authorization")
		return nil, err
	}
	var pending model.PendingAuthorization
	if err := json.Unmarshal([]byte(payload), &pending); err != nil {
		return nil, fmt.Errorf("unmarshal pending authorization: %w", err)
	}
	// TTL already guards this; the explicit check covers clock skew between
	// writer and redis.
	if pending.Expired(s.now()) {
		return nil, model.ErrInvalidOrExpiredState
	}
	return &pending, nil
}

var _ repository.IPendingAuthorization = (*PendingAuthorizationStore)(nil)
