package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// redisClient returns a client for REDIS_ADDR, or for a throwaway container.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		ctx := context.Background()
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
			},
			Started: true,
		})
		if err != nil {
			t.Skipf("redis container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		endpoint, err := container.Endpoint(ctx, "")
		require.NoError(t, err)
		addr = endpoint
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return client
}

func TestRedisScanLease_AcquireRelease(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	lease := NewRedisScanLeaseWithClient(client, "test:lease:"+t.Name())
	t.Cleanup(func() { client.Del(context.Background(), lease.key) })

	ok, err := lease.Acquire(ctx, "host-a/1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.Acquire(ctx, "host-b/1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must wait")

	// a stranger's release leaves the lease in place
	require.NoError(t, lease.Release(ctx, "host-b/1"))
	holder, err := lease.currentHolder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "host-a/1", holder)

	require.NoError(t, lease.Release(ctx, "host-a/1"))
	holder, err = lease.currentHolder(ctx)
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, err = lease.Acquire(ctx, "host-b/1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisScanLease_Expires(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	lease := NewRedisScanLeaseWithClient(client, "test:lease:"+t.Name())
	t.Cleanup(func() { client.Del(context.Background(), lease.key) })

	ok, err := lease.Acquire(ctx, "crashed", 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		ok, err := lease.Acquire(ctx, "next", time.Minute)
		return err == nil && ok
	}, 3*time.Second, 50*time.Millisecond)
}

func TestNewRedisScanLeaseWithClient_DefaultKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	assert.Equal(t, DefaultScanLeaseKey, NewRedisScanLeaseWithClient(client, "").key)
}
