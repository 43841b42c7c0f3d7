package locker

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	usedKeyPrefix     = "locker:used:"
	capacityKeyPrefix = "locker:capacity:"
)

// RedisInventory implements Inventory on top of Redis counters.
type RedisInventory struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisInventory(client *redis.Client, log *zap.Logger) *RedisInventory {
	return &RedisInventory{
		client: client,
		log:    log.With(zap.String("component", "locker_inventory")),
	}
}

func usedKey(gender string) string {
	return usedKeyPrefix + strings.ToLower(gender)
}

func capacityKey(gender string) string {
	return capacityKeyPrefix + strings.ToLower(gender)
}

// Allocate increments the used counter, then checks it against
// capacity. On overflow the increment is rolled back and false is
// returned. INCR is atomic, so two racing allocations cannot both
// land inside capacity when only one slot remains.
func (r *RedisInventory) Allocate(ctx context.Context, gender string) (bool, error) {
	capacity, err := r.client.Get(ctx, capacityKey(gender)).Int64()
	if err == redis.Nil {
		return false, fmt.Errorf("locker capacity not set for %s", gender)
	}
	if err != nil {
		return false, fmt.Errorf("get locker capacity %s: %w", gender, err)
	}

	used, err := r.client.Incr(ctx, usedKey(gender)).Result()
	if err != nil {
		return false, fmt.Errorf("increment locker usage %s: %w", gender, err)
	}

	if used > capacity {
		if _, err := r.client.Decr(ctx, usedKey(gender)).Result(); err != nil {
			r.log.Error("rollback locker allocation failed",
				zap.String("gender", gender),
				zap.Error(err))
		}
		return false, nil
	}

	return true, nil
}

// Release decrements the used counter, clamping at zero.
func (r *RedisInventory) Release(ctx context.Context, gender string) error {
	used, err := r.client.Decr(ctx, usedKey(gender)).Result()
	if err != nil {
		return fmt.Errorf("decrement locker usage %s: %w", gender, err)
	}
	if used < 0 {
		if err := r.client.Set(ctx, usedKey(gender), 0, 0).Err(); err != nil {
			return fmt.Errorf("clamp locker usage %s: %w", gender, err)
		}
	}
	return nil
}

func (r *RedisInventory) Snapshot(ctx context.Context, gender string) (*Availability, error) {
	capacity, err := r.client.Get(ctx, capacityKey(gender)).Int64()
	if err == redis.Nil {
		capacity = 0
	} else if err != nil {
		return nil, fmt.Errorf("get locker capacity %s: %w", gender, err)
	}

	used, err := r.client.Get(ctx, usedKey(gender)).Int64()
	if err == redis.Nil {
		used = 0
	} else if err != nil {
		return nil, fmt.Errorf("get locker usage %s: %w", gender, err)
	}

	available := capacity - used
	if available < 0 {
		available = 0
	}

	return &Availability{
		Gender:    gender,
		Capacity:  capacity,
		Used:      used,
		Available: available,
	}, nil
}

func (r *RedisInventory) SetCapacity(ctx context.Context, gender string, capacity int64) error {
	if err := r.client.Set(ctx, capacityKey(gender), capacity, 0).Err(); err != nil {
		return fmt.Errorf("set locker capacity %s: %w", gender, err)
	}
	return nil
}

func (r *RedisInventory) Reconcile(ctx context.Context, gender string, used int64) error {
	if err := r.client.Set(ctx, usedKey(gender), used, 0).Err(); err != nil {
		return fmt.Errorf("reconcile locker usage %s: %w", gender, err)
	}
	return nil
}
