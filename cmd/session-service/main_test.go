package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/rideshare-auth/internal/config"
	"github.com/pribylovaa/rideshare-auth/internal/storage/memory"
)

func TestOpenStorage_Memory(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.DriverMemory}}

	str, err := openStorage(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(str.Close)

	_, ok := str.(*memory.Storage)
	require.True(t, ok)
}

func TestOpenStorage_RedisTokens(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Storage: config.StorageConfig{Driver: config.DriverMemory, TokenDriver: config.DriverRedis},
		Redis:   config.RedisConfig{RedisURL: "redis://" + mr.Addr() + "/0", Prefix: "test:"},
		Auth:    config.AuthConfig{RefreshTokenTTL: time.Hour},
	}

	ctx := context.Background()
	str, err := openStorage(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(str.Close)

	_, ok := str.(*memory.Storage)
	require.False(t, ok)

	id, err := str.InsertRefreshToken(ctx, "acc-1", "tok-1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	for _, k := range keys {
		require.Contains(t, k, "test:")
	}
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Storage: config.StorageConfig{Driver: "sqlite"}}

	_, err := openStorage(context.Background(), cfg)
	require.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	for _, env := range []string{envLocal, envDev, envProd, "unknown"} {
		require.NotNil(t, setupLogger(env), env)
	}
}
