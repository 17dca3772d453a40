// Package integration provides integration testing utilities for the
// NutriFit backend. It uses testcontainers to spin up a real Redis server,
// so these tests need a Docker daemon and are skipped in short mode.
package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedis represents a disposable Redis server for one test
type TestRedis struct {
	Client    *redis.Client
	Container testcontainers.Container
	Addr      string
}

// NewTestRedis starts a fresh Redis container and returns a connected
// client. Cleanup is registered on the test.
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get container host")
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err, "Failed to get mapped port")

	addr := fmt.Sprintf("%s:%s", host, port.Port())
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err(), "Failed to ping Redis")

	tr := &TestRedis{
		Client:    client,
		Container: container,
		Addr:      addr,
	}

	t.Cleanup(func() {
		_ = client.Close()
		_ = testcontainers.TerminateContainer(container)
	})

	return tr
}
