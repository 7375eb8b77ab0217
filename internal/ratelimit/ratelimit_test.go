package ratelimit_test

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/lilohq/lilo-bookings/internal/adapters/redis"
	"github.com/lilohq/lilo-bookings/internal/ratelimit"
)

func TestRedisLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redisclient.NewClient(&redisclient.Options{Addr: host + ":" + port.Port()})
	limiter := ratelimit.NewRedisLimiter(redisadapter.NewCache(client))

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user:abc", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "user:abc", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request in the window must be rejected")

	// A different key has its own counter.
	allowed, err = limiter.Allow(ctx, "user:other", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
