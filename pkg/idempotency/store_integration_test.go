//go:build integration

package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/campus-cafe/test/integration"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: integration.Redis(t)})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewStore(rdb, time.Minute)

	key := s.Key("place-order", "k-1")
	assert.Equal(t, "idem:place-order:k-1", key)

	seen, err := s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, s.Forget(ctx, key))
	seen, err = s.Seen(ctx, key)
	require.NoError(t, err)
	assert.False(t, seen)
}
