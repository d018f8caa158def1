package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "oauth:session:"

type redisSessionRepository struct {
	rdb *redis.Client
}

// NewRedisSessionRepository keeps authorization sessions in redis. Take uses
// GETDEL so a state can be consumed once even across server instances.
func NewRedisSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func (r *redisSessionRepository) Save(ctx context.Context, s *models.AuthorizationSession, retention time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.rdb.Set(ctx, sessionKeyPrefix+s.State, data, retention).Err(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *redisSessionRepository) Take(ctx context.Context, state string) (*models.AuthorizationSession, error) {
	data, err := r.rdb.GetDel(ctx, sessionKeyPrefix+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	var s models.AuthorizationSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}
