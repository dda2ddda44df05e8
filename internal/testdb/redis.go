package testdb

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var redisSlot slot

// RedisAddr returns the host:port of a Redis server shared by the whole
// test binary. Callers namespace their keys; nothing is flushed between tests.
func RedisAddr(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	redisSlot.once.Do(func() {
		redisSlot.srv, redisSlot.err = startRedis()
	})
	if redisSlot.err != nil {
		t.Fatalf("testdb: start redis: %v", redisSlot.err)
	}
	return net.JoinHostPort(redisSlot.srv.host, redisSlot.srv.port)
}

func startRedis() (*server, error) {
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
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	return &server{container: container, host: host, port: port.Port()}, nil
}
