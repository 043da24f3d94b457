package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionTTL = 24 * time.Hour

// StateStore persists per-session conversation state between turns. Load of
// an unknown session returns a fresh empty state.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, sessionID string, st *State) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStateStore keeps session state in Redis with a rolling TTL so
// abandoned sessions expire on their own.
type RedisStateStore struct {
	redis *redis.Client
}

// NewRedisStateStore wraps an existing client.
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisStateStore{redis: client}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (s *RedisStateStore) Load(ctx context.Context, sessionID string) (*State, error) {
	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return NewState(), nil
		}
		return nil, fmt.Errorf("conversation: failed to load session %s: %w", sessionID, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode session %s: %w", sessionID, err)
	}
	return &st, nil
}

func (s *RedisStateStore) Save(ctx context.Context, sessionID string, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session %s: %w", sessionID, err)
	}
	if err := s.redis.Set(ctx, sessionKey(sessionID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("conversation: failed to persist session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("conversation: failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// MemoryStateStore is the in-process fallback used by tests and the console
// agent, where a single session lives for the life of the process.
type MemoryStateStore struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewMemoryStateStore builds an empty store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{sessions: make(map[string]*State)}
}

func (s *MemoryStateStore) Load(_ context.Context, sessionID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		cp := *st
		return &cp, nil
	}
	return NewState(), nil
}

func (s *MemoryStateStore) Save(_ context.Context, sessionID string, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.sessions[sessionID] = &cp
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
