package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenNotFound is returned when no refresh token is stored for a user.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenStore keeps the current refresh token per user.
type TokenStore interface {
	Save(ctx context.Context, userID int64, token string, ttl time.Duration) error
	Get(ctx context.Context, userID int64) (string, error)
	Delete(ctx context.Context, userID int64) error
}

func refreshTokenKey(userID int64) string {
	return fmt.Sprintf("refresh_token:%d", userID)
}

type redisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore keeps refresh tokens in Redis under refresh_token:<id>.
func NewRedisTokenStore(client *redis.Client) TokenStore {
	return &redisTokenStore{client: client}
}

func (s *redisTokenStore) Save(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, refreshTokenKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (s *redisTokenStore) Get(ctx context.Context, userID int64) (string, error) {
	token, err := s.client.Get(ctx, refreshTokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	return token, nil
}

func (s *redisTokenStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, refreshTokenKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

type memoryTokenStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	now     func() time.Time
}

// NewMemoryTokenStore keeps refresh tokens in process memory. Used when Redis
// is not configured.
func NewMemoryTokenStore() TokenStore {
	return &memoryTokenStore{entries: map[int64]memoryEntry{}, now: time.Now}
}

func (s *memoryTokenStore) Save(_ context.Context, userID int64, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = memoryEntry{token: token, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryTokenStore) Get(_ context.Context, userID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return "", ErrTokenNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, userID)
		return "", ErrTokenNotFound
	}
	return entry.token, nil
}

func (s *memoryTokenStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
