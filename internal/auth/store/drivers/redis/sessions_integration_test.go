//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/rollcall/internal/auth/store/drivers/redis"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mappedPort.Port())
}

func TestSessionsAgainstRedis(t *testing.T) {
	ctx := context.Background()
	s := redis.NewSessions(redis.Options{Addr: setupRedisContainer(t)})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Create(ctx, "u1", "a", time.Second))

	ok, err := s.Consume(ctx, "u1", "a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Consume(ctx, "u1", "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Create(ctx, "u1", "b", time.Second))
	require.Eventually(t, func() bool {
		ok, err := s.Exists(ctx, "u1", "b")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}
