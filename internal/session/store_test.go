package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore(time.Hour)

	sess, err := s.Create(context.Background(), "g1", "p1", "Alice")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	got, err := s.Get(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GameID)
	assert.Equal(t, "p1", got.UserID)
	assert.Equal(t, "Alice", got.Username)
}

func TestMemoryStore_UnknownToken(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	sess, err := s.Create(context.Background(), "g1", "p1", "Alice")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), sess.Token))
	_, err = s.Get(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }

	sess, err := s.Create(context.Background(), "g1", "p1", "Alice")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Get(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetSlidesExpiry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }

	sess, err := s.Create(context.Background(), "g1", "p1", "Alice")
	require.NoError(t, err)

	// Touch the session just before expiry, then advance past the
	// original deadline; the touch must have extended it.
	now = now.Add(59 * time.Minute)
	_, err = s.Get(context.Background(), sess.Token)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = s.Get(context.Background(), sess.Token)
	assert.NoError(t, err)
}

func TestMemoryStore_TokensAreUnique(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	a, err := s.Create(context.Background(), "g1", "p1", "Alice")
	require.NoError(t, err)
	b, err := s.Create(context.Background(), "g1", "p2", "Bob")
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}
