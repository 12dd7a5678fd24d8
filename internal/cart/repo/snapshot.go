package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wtf-storefront/cart-core/internal/cart/model"
	errx "github.com/wtf-storefront/cart-core/internal/core/error"
	logx "github.com/wtf-storefront/cart-core/pkg/logger"
)

// StoredCart is the persisted copy of a session's last non-empty cart.
type StoredCart struct {
	Snapshot model.CartSnapshot `json:"snapshot"`
	SavedAt  time.Time          `json:"saved_at"`
}

// Age reports how long ago the cart was saved.
func (s StoredCart) Age(now time.Time) time.Duration {
	return now.Sub(s.SavedAt)
}

// SnapshotRepository persists carts per browsing session.
type SnapshotRepository interface {
	// Save stores the snapshot and refreshes its TTL.
	Save(ctx context.Context, sessionID string, snap model.CartSnapshot) error

	// Load returns the stored cart, or nil when nothing is stored.
	Load(ctx context.Context, sessionID string) (*StoredCart, error)

	// Clear removes the stored cart.
	Clear(ctx context.Context, sessionID string) error
}

type RedisSnapshotRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisSnapshotRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSnapshotRepository {
	return &RedisSnapshotRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisSnapshotRepository) snapshotKey(sessionID string) string {
	return fmt.Sprintf("cart:%s:snapshot", sessionID)
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, sessionID string, snap model.CartSnapshot) error {
	b, err := json.Marshal(StoredCart{Snapshot: snap, SavedAt: r.now().UTC()})
	if err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to marshal cart snapshot")
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := r.snapshotKey(sessionID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store cart snapshot in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSnapshotRepository) Load(ctx context.Context, sessionID string) (*StoredCart, error) {
	key := r.snapshotKey(sessionID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load cart snapshot from redis")
		return nil, errx.WrapRedis(err)
	}

	var stored StoredCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to unmarshal cart snapshot")
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &stored, nil
}

func (r *RedisSnapshotRepository) Clear(ctx context.Context, sessionID string) error {
	key := r.snapshotKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete cart snapshot from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ SnapshotRepository = (*RedisSnapshotRepository)(nil)
