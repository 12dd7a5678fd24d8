package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
)

func newRepo(t *testing.T, ttl time.Duration) (*RedisSnapshotRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSnapshotRepository(rdb, ttl), srv
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r, srv := newRepo(t, time.Hour)
	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	ctx := context.Background()

	snap := model.CartSnapshot{
		ItemCount:  2,
		TotalPrice: 1600,
		Items: []model.LineItem{{
			VariantID: 111, ProductTitle: "Kava Mango Shot", Price: 800, Quantity: 2,
			Properties: map[string]string{"Size": "Single"},
		}},
	}
	require.NoError(t, r.Save(ctx, "sess-1", snap))

	assert.True(t, srv.Exists("cart:sess-1:snapshot"))
	assert.Equal(t, time.Hour, srv.TTL("cart:sess-1:snapshot"))

	got, err := r.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap, got.Snapshot)
	assert.True(t, fixed.Equal(got.SavedAt))
	assert.Equal(t, 2*time.Hour, got.Age(fixed.Add(2*time.Hour)))
}

func TestLoadMissing(t *testing.T) {
	r, _ := newRepo(t, time.Hour)

	got, err := r.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClear(t *testing.T) {
	r, srv := newRepo(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "sess-2", model.CartSnapshot{ItemCount: 1, Items: []model.LineItem{{Quantity: 1}}}))
	require.NoError(t, r.Clear(ctx, "sess-2"))
	assert.False(t, srv.Exists("cart:sess-2:snapshot"))
}

func TestExpiry(t *testing.T) {
	r, srv := newRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, "sess-3", model.CartSnapshot{}))
	srv.FastForward(2 * time.Minute)

	got, err := r.Load(ctx, "sess-3")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorageFailure(t *testing.T) {
	r, srv := newRepo(t, time.Hour)
	srv.Close()

	err := r.Save(context.Background(), "sess-4", model.CartSnapshot{})
	assert.ErrorIs(t, err, errx.ErrStorage)

	_, err = r.Load(context.Background(), "sess-4")
	assert.ErrorIs(t, err, errx.ErrStorage)
}

func TestCorruptPayload(t *testing.T) {
	r, srv := newRepo(t, time.Hour)
	require.NoError(t, srv.Set("cart:sess-5:snapshot", "{not json"))

	_, err := r.Load(context.Background(), "sess-5")
	assert.Error(t, err)
}
