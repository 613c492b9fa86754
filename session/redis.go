package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisKeyPrefix - пространство имен ключей сессий
const RedisKeyPrefix = "session:"

const takeCaptchaRetries = 5

// RedisStore хранит сессии в Redis; срок жизни задается TTL ключа
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, id string) (State, bool, error) {
	raw, err := s.rdb.Get(ctx, RedisKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("failed to load session: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, false, fmt.Errorf("failed to decode session: %w", err)
	}
	return state, true, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, state State, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, RedisKeyPrefix+id, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, RedisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// TakeCaptcha читает и стирает ответ в WATCH/MULTI-транзакции; конкурентная
// запись ключа повторяет попытку
func (s *RedisStore) TakeCaptcha(ctx context.Context, id string) (string, error) {
	key := RedisKeyPrefix + id

	var answer string
	take := func(tx *redis.Tx) error {
		answer = ""
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}

		var state State
		if err := json.Unmarshal(raw, &state); err != nil {
			return fmt.Errorf("failed to decode session: %w", err)
		}
		if state.CaptchaAnswer == "" {
			return nil
		}

		pending := state.CaptchaAnswer
		state.CaptchaAnswer = ""
		encoded, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		answer = pending
		return nil
	}

	for i := 0; i < takeCaptchaRetries; i++ {
		err := s.rdb.Watch(ctx, take, key)
		if err == nil {
			return answer, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return "", fmt.Errorf("failed to take captcha answer: %w", err)
	}
	return "", errors.New("failed to take captcha answer: too many concurrent updates")
}
