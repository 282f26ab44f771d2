package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercadito/storefront/internal/cart"
)

// Redis persists the cart under a single fixed key as a JSON array of
// {product, quantity} records. There is no version field: a format
// change invalidates previously saved carts.
type Redis struct {
	rdb *redis.Client
	key string
	ttl time.Duration
	log *slog.Logger
}

// NewRedis builds the adapter. ttl of zero keeps the slot durable.
func NewRedis(rdb *redis.Client, key string, ttl time.Duration, log *slog.Logger) *Redis {
	return &Redis{rdb: rdb, key: key, ttl: ttl, log: log}
}

func (r *Redis) Save(ctx context.Context, entries []cart.Entry) error {
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", r.key, err)
	}
	return nil
}

// Load reads the slot. An absent key or an unreadable value yields an
// empty cart; entries failing validation are dropped one by one so a
// single corrupt record never blocks the rest from restoring.
func (r *Redis) Load(ctx context.Context) ([]cart.Entry, error) {
	b, err := r.rdb.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", r.key, err)
	}

	var raw []cart.Entry
	if err := json.Unmarshal(b, &raw); err != nil {
		r.log.Warn("discarding unreadable cart slot", "key", r.key, "err", err)
		return nil, nil
	}
	kept := raw[:0]
	for _, e := range raw {
		if err := e.Validate(); err != nil {
			r.log.Warn("dropping corrupt cart entry", "product_id", e.Product.ID, "err", err)
			continue
		}
		kept = append(kept, e)
	}
	return kept, nil
}

var _ cart.Storage = (*Redis)(nil)
