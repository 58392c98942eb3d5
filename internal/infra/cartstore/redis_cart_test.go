package cartstore

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisCartStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRedisCartStore(client, ttl)
}

func TestRedisCartStore_SaveAndGet(t *testing.T) {
	_, s := setupStore(t, time.Hour)
	ctx := context.Background()

	accountID := int64(7)
	c := model.Cart{Key: "account:7", AccountID: &accountID}
	c.Add(model.VariantRef{ProductID: 1, Size: "M"}, 2)
	require.NoError(t, s.Save(ctx, c))

	got, err := s.Get(ctx, "account:7")
	require.NoError(t, err)
	assert.Equal(t, "account:7", got.Key)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "M", got.Lines[0].Size)
	assert.Equal(t, int64(2), got.Lines[0].Quantity)
	assert.Equal(t, accountID, *got.AccountID)
}

func TestRedisCartStore_MissingKeyIsEmptyCart(t *testing.T) {
	_, s := setupStore(t, time.Hour)

	got, err := s.Get(context.Background(), "session:none")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.NotNil(t, got.Lines)
}

func TestRedisCartStore_ExpiresAfterTTL(t *testing.T) {
	mr, s := setupStore(t, time.Minute)
	ctx := context.Background()

	c := model.Cart{Key: "session:abc"}
	c.Add(model.VariantRef{ProductID: 3}, 1)
	require.NoError(t, s.Save(ctx, c))

	mr.FastForward(2 * time.Minute)

	got, err := s.Get(ctx, "session:abc")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestRedisCartStore_Delete(t *testing.T) {
	mr, s := setupStore(t, time.Hour)
	ctx := context.Background()

	c := model.Cart{Key: "session:del"}
	c.Add(model.VariantRef{ProductID: 3}, 1)
	require.NoError(t, s.Save(ctx, c))
	require.True(t, mr.Exists("cart:session:del"))

	require.NoError(t, s.Delete(ctx, "session:del"))
	assert.False(t, mr.Exists("cart:session:del"))
}
