package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"redis":  rs,
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			value := []map[string]any{{"id": "a"}, {"id": "b"}}
			require.NoError(t, store.Set(ctx, "purchase-invoices", "tier=paid", value, time.Minute))

			var got []map[string]any
			hit, err := store.Get(ctx, "purchase-invoices", "tier=paid", &got)
			require.NoError(t, err)
			require.True(t, hit)
			require.Len(t, got, 2)

			hit, err = store.Get(ctx, "purchase-invoices", "tier=unpaid", &got)
			require.NoError(t, err)
			require.False(t, hit, "different query is a different entry")
		})
	}
}

func TestInvalidateDropsAllQueriesForResource(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "purchase-invoices", "", "a", time.Minute))
			require.NoError(t, store.Set(ctx, "purchase-invoices", "tier=paid", "b", time.Minute))
			require.NoError(t, store.Set(ctx, "purchase-orders", "", "c", time.Minute))

			require.NoError(t, store.Invalidate(ctx, "purchase-invoices"))

			var s string
			hit, err := store.Get(ctx, "purchase-invoices", "", &s)
			require.NoError(t, err)
			require.False(t, hit)
			hit, err = store.Get(ctx, "purchase-invoices", "tier=paid", &s)
			require.NoError(t, err)
			require.False(t, hit)

			// Other resources are untouched.
			hit, err = store.Get(ctx, "purchase-orders", "", &s)
			require.NoError(t, err)
			require.True(t, hit)
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "payrolls", "", "x", time.Second))

	mr.FastForward(2 * time.Second)

	var s string
	hit, err := store.Get(ctx, "payrolls", "", &s)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore()
	base := time.Now()
	store.now = func() time.Time { return base }
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "payrolls", "", "x", time.Second))

	store.now = func() time.Time { return base.Add(2 * time.Second) }

	var s string
	hit, err := store.Get(ctx, "payrolls", "", &s)
	require.NoError(t, err)
	require.False(t, hit)
}
