package service

import (
	"context"
	"errors"
	"sync"

	"sheetwatch/internal/models"

	"github.com/redis/go-redis/v9"
)

// StatusStore owns the two externally pollable slots: the pass outcome and
// the latest AI explanation. Both are overwritten on publish, last writer
// wins. It also acts as the chat sink, forwarding stores the explanation
// into the latest-response slot.
type StatusStore interface {
	SetStatus(ctx context.Context, status string) error
	Status(ctx context.Context) (string, error)
	Forward(ctx context.Context, text string) error
	LatestResponse(ctx context.Context) (string, error)
}

const (
	statusKey         = "validation:status"
	latestResponseKey = "validation:latest_response"
)

// RedisStatusStore keeps the slots in Redis so the web and worker processes
// share them. Each publish is a single key overwrite.
type RedisStatusStore struct {
	client *redis.Client
}

func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

func (s *RedisStatusStore) SetStatus(ctx context.Context, status string) error {
	return s.client.Set(ctx, statusKey, status, 0).Err()
}

func (s *RedisStatusStore) Status(ctx context.Context) (string, error) {
	status, err := s.client.Get(ctx, statusKey).Result()
	if errors.Is(err, redis.Nil) {
		return models.StatusSuccess, nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}

func (s *RedisStatusStore) Forward(ctx context.Context, text string) error {
	return s.client.Set(ctx, latestResponseKey, text, 0).Err()
}

func (s *RedisStatusStore) LatestResponse(ctx context.Context) (string, error) {
	text, err := s.client.Get(ctx, latestResponseKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// MemoryStatusStore is the single-process fallback used when Redis is not
// available. The slots live behind a mutex.
type MemoryStatusStore struct {
	mu             sync.RWMutex
	status         string
	latestResponse string
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{status: models.StatusSuccess}
}

func (s *MemoryStatusStore) SetStatus(ctx context.Context, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	return nil
}

func (s *MemoryStatusStore) Status(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

func (s *MemoryStatusStore) Forward(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestResponse = text
	return nil
}

func (s *MemoryStatusStore) LatestResponse(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestResponse, nil
}
