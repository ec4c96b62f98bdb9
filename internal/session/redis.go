package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eduvoyage/admin-gateway/internal/models"
)

// Key layout mirrors the browser console it replaces: the profile blob and
// the bearer token are stored separately so the token can be read without
// decoding the profile.
const (
	userKey  = "adminUser"
	tokenKey = "adminToken"
)

// RedisStore shares one admin session across a fleet of gateways.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("read session token: %w", err)
	}
	return token, nil
}

func (s *RedisStore) CurrentUser(ctx context.Context) (*models.AdminUser, error) {
	raw, err := s.client.Get(ctx, userKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session user: %w", err)
	}
	var user models.AdminUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode session user: %w", err)
	}
	return &user, nil
}

func (s *RedisStore) SaveLogin(ctx context.Context, user models.AdminUser, token string) error {
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	if err := s.client.Set(ctx, userKey, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session user: %w", err)
	}
	if err := s.client.Set(ctx, tokenKey, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, userKey, tokenKey).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
