package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	appredis "github.com/taskmate-bot/taskmate/pkg/redis"
)

const (
	stateKeyPattern = "user:%d:state"
	dataKeyPattern  = "user:%d:data"
)

// RedisStore persists conversation sessions in Redis under a pair of keys
// per user: one for the state token, one for the scratch data blob.
type RedisStore struct {
	client *appredis.Client
	log    *slog.Logger
	ttl    time.Duration
}

// NewRedisStore initializes a Redis-backed Store. A zero ttl stores keys
// without expiry; flow logic must not rely on expiry either way.
func NewRedisStore(client *appredis.Client, log *slog.Logger, ttl time.Duration) *RedisStore {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStore{
		client: client,
		log:    log,
		ttl:    ttl,
	}
}

// SetState overwrites the state token for the user.
func (s *RedisStore) SetState(ctx context.Context, userID int64, state string) error {
	if err := s.client.Set(ctx, stateKey(userID), state, s.ttl); err != nil {
		s.log.Error("failed to save session state", slog.Int64("user_id", userID), slog.Any("error", err))
		failureRecorder("set_state")
		return err
	}

	return nil
}

// GetState returns the stored state token or ErrStateNotFound when absent.
func (s *RedisStore) GetState(ctx context.Context, userID int64) (string, error) {
	value, err := s.client.Get(ctx, stateKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", ErrStateNotFound
		}

		s.log.Error("failed to get session state", slog.Int64("user_id", userID), slog.Any("error", err))
		failureRecorder("get_state")
		return "", err
	}

	return value, nil
}

// SetData overwrites the scratch data blob for the user.
func (s *RedisStore) SetData(ctx context.Context, userID int64, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Error("failed to encode session data", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}

	if err := s.client.Set(ctx, dataKey(userID), payload, s.ttl); err != nil {
		s.log.Error("failed to save session data", slog.Int64("user_id", userID), slog.Any("error", err))
		failureRecorder("set_data")
		return err
	}

	return nil
}

// GetData returns the scratch data, or an empty map when nothing is stored.
func (s *RedisStore) GetData(ctx context.Context, userID int64) (map[string]any, error) {
	value, err := s.client.Get(ctx, dataKey(userID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return map[string]any{}, nil
		}

		s.log.Error("failed to get session data", slog.Int64("user_id", userID), slog.Any("error", err))
		failureRecorder("get_data")
		return map[string]any{}, err
	}

	data := map[string]any{}
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		s.log.Error("failed to decode session data", slog.Int64("user_id", userID), slog.Any("error", err))
		failureRecorder("get_data")
		return map[string]any{}, err
	}

	return data, nil
}

// Clear removes state and scratch data in a single pipelined round-trip so
// that a concurrent reader never observes one without the other.
func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, stateKey(userID))
	pipe.Del(ctx, dataKey(userID))

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("failed to clear session", slog.Int64("user_id", userID), slog.Any("error", err))
		failureRecorder("clear")
		return err
	}

	return nil
}

func stateKey(userID int64) string {
	return fmt.Sprintf(stateKeyPattern, userID)
}

func dataKey(userID int64) string {
	return fmt.Sprintf(dataKeyPattern, userID)
}
