package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/subtracklabs/subtrack/internal/emailverify/domain"
)

const (
	verificationKeyPrefix = "emailverify:account:"
	ownerKeyPrefix        = "emailverify:owner:"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, accountID string) (*domain.Verification, error) {
	raw, err := s.client.Get(ctx, verificationKeyPrefix+accountID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var v domain.Verification
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *RedisStore) Put(ctx context.Context, v *domain.Verification, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, verificationKeyPrefix+v.AccountID, raw, ttl).Err()
}

func (s *RedisStore) VerifiedOwner(ctx context.Context, email string) (string, error) {
	owner, err := s.client.Get(ctx, ownerKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return owner, nil
}

func (s *RedisStore) ClaimEmail(ctx context.Context, email, accountID string, ttl time.Duration) error {
	return s.client.Set(ctx, ownerKeyPrefix+email, accountID, ttl).Err()
}
