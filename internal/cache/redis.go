package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skyops/emptylegs/config"
	"github.com/skyops/emptylegs/internal/domain"
)

type RedisCache struct {
	client   *redis.Client
	dealsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, dealsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		dealsTTL: dealsTTL,
	}
}

func (c *RedisCache) GetDeals(ctx context.Context) ([]domain.Deal, error) {
	data, err := c.client.Get(ctx, dealsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var deals []domain.Deal
	if err := json.Unmarshal(data, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

func (c *RedisCache) SetDeals(ctx context.Context, deals []domain.Deal) error {
	payload, err := json.Marshal(deals)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, dealsKey(), payload, c.dealsTTL).Err()
}

// InvalidateDeals drops the listing cache after any mutation of deal rows
// (sync run, sweep, approval) so readers never see stale seat counts for
// longer than one round trip.
func (c *RedisCache) InvalidateDeals(ctx context.Context) error {
	return c.client.Del(ctx, dealsKey()).Err()
}

func dealsKey() string {
	return "cache:deals:live"
}
