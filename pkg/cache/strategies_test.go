package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountsvc/pkg/logger"
)

type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = data
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return m.failGet
	}
	data, ok := m.items[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *memoryCache) Ping(context.Context) error { return nil }

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}

type view struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func testLogger() logger.Logger {
	return logger.New(logger.ErrorLevel, io.Discard)
}

func TestReadThrough_MissThenHit(t *testing.T) {
	ctx := context.Background()
	mc := newMemoryCache()
	cm := NewCacheManager(mc, testLogger())

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return view{ID: "1", Name: "alice"}, nil
	}

	var first view
	require.NoError(t, cm.ReadThrough(ctx, "account:id:1", &first, fetch, time.Minute))
	assert.Equal(t, "alice", first.Name)

	var second view
	require.NoError(t, cm.ReadThrough(ctx, "account:id:1", &second, fetch, time.Minute))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestReadThrough_FetchErrorIsReturned(t *testing.T) {
	cm := NewCacheManager(newMemoryCache(), testLogger())
	boom := errors.New("boom")

	var dest view
	err := cm.ReadThrough(context.Background(), "k", &dest, func() (interface{}, error) { return nil, boom }, time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestReadThrough_CacheFailureFallsBackToSource(t *testing.T) {
	mc := newMemoryCache()
	mc.failGet = errors.New("connection refused")
	cm := NewCacheManager(mc, testLogger())

	var dest view
	err := cm.ReadThrough(context.Background(), "k", &dest, func() (interface{}, error) {
		return view{ID: "2"}, nil
	}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "2", dest.ID)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	mc := newMemoryCache()
	cm := NewCacheManager(mc, testLogger())
	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))

	require.NoError(t, cm.Invalidate(ctx, "a"))

	assert.False(t, mc.has("a"))
}

func TestNoopCache(t *testing.T) {
	var c Cache = NoopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	var dest string
	assert.ErrorIs(t, c.Get(ctx, "k", &dest), ErrCacheMiss)
	assert.NoError(t, c.Ping(ctx))
}

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	rc := NewRedisCache(client, testLogger(), "accountsvc-test")
	require.NoError(t, rc.Ping(ctx))

	require.NoError(t, rc.Set(ctx, "account:id:x", view{ID: "x"}, time.Minute))
	var got view
	require.NoError(t, rc.Get(ctx, "account:id:x", &got))
	assert.Equal(t, "x", got.ID)

	require.NoError(t, rc.Delete(ctx, "account:id:x"))
	assert.ErrorIs(t, rc.Get(ctx, "account:id:x", &got), ErrCacheMiss)
}
