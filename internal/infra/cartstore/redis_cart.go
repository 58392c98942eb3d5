package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// RedisCartStore はカートをJSONで1キーに保存する。
// 書き込みごとにTTLを延長する（最後の操作から一定期間で消える）。
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr string, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: ttl}
}

func redisKey(key string) string {
	return "cart:" + key
}

func (s *RedisCartStore) Get(ctx context.Context, key string) (model.Cart, error) {
	raw, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Cart{Key: key, Lines: []model.CartLine{}}, nil
	}
	if err != nil {
		return model.Cart{}, fmt.Errorf("get cart: %w", err)
	}

	var c model.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	c.Key = key
	if c.Lines == nil {
		c.Lines = []model.CartLine{}
	}
	return c, nil
}

func (s *RedisCartStore) Save(ctx context.Context, cart model.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(cart.Key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
