package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/Protocol-Lattice/research-agent"
	"github.com/Protocol-Lattice/research-agent/src/config"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	empty, err := store.History(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Append(ctx, "a", agent.Message{Role: agent.RoleUser, Content: "Tell me about France"}))
	require.NoError(t, store.Append(ctx, "a", agent.Message{Role: agent.RoleAssistant, Content: "Topic: France"}))
	require.NoError(t, store.Append(ctx, "b", agent.Message{Role: agent.RoleUser, Content: "other"}))

	got, err := store.History(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []agent.Message{
		{Role: agent.RoleUser, Content: "Tell me about France"},
		{Role: agent.RoleAssistant, Content: "Topic: France"},
	}, got)

	require.NoError(t, store.Clear(ctx, "a"))
	got, err = store.History(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := store.History(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Append(ctx, "a", agent.Message{Role: agent.RoleUser, Content: "x"}))

	got, _ := s.History(ctx, "a")
	got[0].Content = "mutated"

	again, _ := s.History(ctx, "a")
	assert.Equal(t, "x", again[0].Content)
	assert.Equal(t, []string{"a"}, s.ActiveIDs())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client, "test", ttl), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	exerciseStore(t, store)
}

func TestRedisStoreSlidingTTL(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s", agent.Message{Role: agent.RoleUser, Content: "hi"}))
	assert.Equal(t, time.Minute, mr.TTL("test:s"))

	mr.FastForward(2 * time.Minute)
	got, err := store.History(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisStoreRejectsCorruptEntries(t *testing.T) {
	store, mr := newRedisStore(t, 0)
	_, err := mr.RPush("test:s", "not json")
	require.NoError(t, err)

	_, err = store.History(context.Background(), "s")
	assert.Error(t, err)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, defaultKeyPrefix+":x", store.key("x"))

	_, err = NewRedisStore(context.Background(), RedisOptions{})
	assert.Error(t, err)
}

func TestIDs(t *testing.T) {
	id := NewID()
	assert.True(t, ValidID(id))
	assert.False(t, ValidID("not-a-uuid"))
	assert.NotEqual(t, id, NewID())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, config.SessionConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	mr := miniredis.RunT(t)
	store, err = Open(ctx, config.SessionConfig{Backend: "redis", RedisAddr: mr.Addr(), TTL: time.Hour})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, store)

	_, err = Open(ctx, config.SessionConfig{Backend: "disk"})
	assert.Error(t, err)
}
