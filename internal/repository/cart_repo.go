package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/redis/go-redis/v9"
)

// CartRepository persists one cart blob per browser, keyed by the anonymous
// identifier. Writes are last-wins; concurrent tabs sharing a browser race
// without conflict resolution, matching the original persisted-storage
// behavior.
type CartRepository interface {
	Get(ctx context.Context, browserID string) (*model.Cart, error)
	Save(ctx context.Context, browserID string, cart *model.Cart) error
	Delete(ctx context.Context, browserID string) error
}

type cartRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCartRepo(rdb *redis.Client, ttl time.Duration) CartRepository {
	return &cartRepo{rdb: rdb, ttl: ttl}
}

func cartKey(browserID string) string {
	return "cart:" + browserID
}

// Get returns the stored cart, or an empty cart when none exists.
func (r *cartRepo) Get(ctx context.Context, browserID string) (*model.Cart, error) {
	raw, err := r.rdb.Get(ctx, cartKey(browserID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &model.Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}
	var cart model.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		// A corrupt blob is dropped rather than wedging the cart forever
		_ = r.rdb.Del(ctx, cartKey(browserID)).Err()
		return &model.Cart{}, nil
	}
	return &cart, nil
}

func (r *cartRepo) Save(ctx context.Context, browserID string, cart *model.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := r.rdb.Set(ctx, cartKey(browserID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing cart: %w", err)
	}
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, browserID string) error {
	if err := r.rdb.Del(ctx, cartKey(browserID)).Err(); err != nil {
		return fmt.Errorf("deleting cart: %w", err)
	}
	return nil
}
