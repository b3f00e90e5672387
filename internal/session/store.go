package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no session exists for a token.
var ErrNotFound = errors.New("session_not_found")

// Session links a reconnection token to a seat in a game. Clients present
// the token on resume to reclaim their player identity.
type Session struct {
	Token     string    `json:"token"`
	GameID    string    `json:"gameId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists reconnection sessions.
type Store interface {
	Create(ctx context.Context, gameID, userID, username string) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// RedisStore keeps sessions in Redis with a TTL, surviving server restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, client *redis.Client, ttl time.Duration, logger *zap.Logger) (*RedisStore, error) {
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}, nil
}

func sessionKey(token string) string {
	return "session:" + token
}

func (s *RedisStore) Create(ctx context.Context, gameID, userID, username string) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		GameID:    gameID,
		UserID:    userID,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.Token), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.logger.Debug("session created",
		zap.String("game_id", gameID),
		zap.String("user_id", userID),
	)
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	// Sliding expiry: an active player's session should not lapse mid-game.
	s.client.Expire(ctx, sessionKey(token), s.ttl)
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// MemoryStore is the fallback when Redis is not configured. Sessions do
// not survive a restart, which degrades reconnection but keeps the server
// fully functional.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-process session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, gameID, userID, username string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()

	sess := Session{
		Token:     uuid.NewString(),
		GameID:    gameID,
		UserID:    userID,
		Username:  username,
		CreatedAt: s.now().UTC(),
	}
	s.sessions[sess.Token] = memorySession{
		session:   sess,
		expiresAt: s.now().Add(s.ttl),
	}
	out := sess
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, token)
		return nil, ErrNotFound
	}
	entry.expiresAt = s.now().Add(s.ttl)
	s.sessions[token] = entry
	out := entry.session
	return &out, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) evictExpiredLocked() {
	now := s.now()
	for token, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, token)
		}
	}
}
