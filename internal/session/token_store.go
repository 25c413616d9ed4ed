package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrTokenNotFound = errors.New("upstream_token_not_found")

// TokenStore persists the directory bearer token of each admin session.
type TokenStore interface {
	Put(ctx context.Context, sessionID, token string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisTokenStore keeps tokens under admin:upstream_token:<sid> with a TTL
// matching the admin session.
type RedisTokenStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedisTokenStore(rdb *goredis.Client) *RedisTokenStore {
	return &RedisTokenStore{
		rdb:    rdb,
		prefix: "admin:upstream_token:",
	}
}

func (s *RedisTokenStore) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisTokenStore) Put(ctx context.Context, sessionID, token string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id required")
	}
	return s.rdb.Set(ctx, s.key(sessionID), token, ttl).Err()
}

func (s *RedisTokenStore) Get(ctx context.Context, sessionID string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrTokenNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.key(sessionID)).Err()
}

// MemoryTokenStore is the single-instance fallback when Redis is not
// configured.
type MemoryTokenStore struct {
	mu     sync.Mutex
	now    func() time.Time
	tokens map[string]memoryToken
}

type memoryToken struct {
	value     string
	expiresAt time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		now:    time.Now,
		tokens: make(map[string]memoryToken),
	}
}

func (s *MemoryTokenStore) Put(_ context.Context, sessionID, token string, ttl time.Duration) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("session id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := memoryToken{value: token}
	if ttl > 0 {
		t.expiresAt = s.now().Add(ttl)
	}
	s.tokens[sessionID] = t
	return nil
}

func (s *MemoryTokenStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[sessionID]
	if !ok {
		return "", ErrTokenNotFound
	}
	if !t.expiresAt.IsZero() && !s.now().Before(t.expiresAt) {
		delete(s.tokens, sessionID)
		return "", ErrTokenNotFound
	}
	return t.value, nil
}

func (s *MemoryTokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, sessionID)
	return nil
}
