package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querysage/querysage/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{"WAREHOUSE_DRIVER", "WAREHOUSE_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	err := run(discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidRedisURL(t *testing.T) {
	// The http driver defers warehouse connectivity to first use, so a bad
	// Redis URL is the first thing run() trips over.
	t.Setenv("WAREHOUSE_DRIVER", "http")
	t.Setenv("WAREHOUSE_URL", "http://localhost:8080")
	t.Setenv("REDIS_URL", "not-a-redis-url")

	err := run(discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNewTransport(t *testing.T) {
	ctx := context.Background()

	tr, cleanup, err := newTransport(ctx, config.WarehouseConfig{
		Driver:       "http",
		URL:          "http://localhost:8080",
		PollInterval: time.Second,
		QueryTimeout: time.Minute,
	})
	require.NoError(t, err)
	require.NotNil(t, tr)
	cleanup()

	_, _, err = newTransport(ctx, config.WarehouseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
