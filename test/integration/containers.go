//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

const startTimeout = 2 * time.Minute

func terminateOnCleanup(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
}

// Postgres starts a throwaway database and returns its connection URL.
func Postgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("campuscafe"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	terminateOnCleanup(t, pgC)

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

// Kafka starts a single-node broker and returns its addresses.
func Kafka(t *testing.T) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("campus-cafe"),
	)
	require.NoError(t, err)
	terminateOnCleanup(t, kafkaC)

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}

// Redis starts a redis server and returns host:port.
func Redis(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	redisC, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	terminateOnCleanup(t, redisC)

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}
