package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"samaj-census/internal/domain"

	"github.com/go-redis/redis/v8"
)

// ErrSessionNotFound 会话不存在
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps in-progress dialogue sessions keyed by phone number.
// Sessions are ephemeral conversation state, not the system of record, so
// the store does not need to survive process restarts.
type SessionStore interface {
	Get(ctx context.Context, phone string) (*domain.Session, error)
	Put(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, phone string) error
}

// RedisSessionStore persists sessions as JSON with a TTL, so abandoned
// dialogues expire instead of living forever.
type RedisSessionStore struct {
	c   *redis.Client
	ttl time.Duration
}

func NewRedisSessionStore(c *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{c: c, ttl: ttl}
}

func sessionKey(phone string) string { return "session:" + phone }

func (s *RedisSessionStore) Get(ctx context.Context, phone string) (*domain.Session, error) {
	val, err := s.c.Get(ctx, sessionKey(phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.c.Set(ctx, sessionKey(sess.Phone), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, phone string) error {
	if err := s.c.Del(ctx, sessionKey(phone)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MemorySessionStore supports running without Redis (dev mode and tests).
// TTL is enforced lazily on Get.
type MemorySessionStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	sess      *domain.Session
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:     ttl,
		entries: map[string]memoryEntry{},
	}
}

func (s *MemorySessionStore) Get(_ context.Context, phone string) (*domain.Session, error) {
	s.mu.RLock()
	e, ok := s.entries[phone]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.ttl > 0 && time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, phone)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return e.sess, nil
}

func (s *MemorySessionStore) Put(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.Phone] = memoryEntry{
		sess:      sess,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, phone)
	return nil
}
