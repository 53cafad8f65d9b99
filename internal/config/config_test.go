package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BrokerMemory, cfg.Broker)
	assert.Equal(t, 500*time.Millisecond, cfg.DeliveryTimeout)
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.True(t, cfg.DropSlowConsumers)
	assert.False(t, cfg.PresencePersist)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisURL())
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ACCESS_TOKEN_SECRET=from-file\nBROKER=REDIS\nSRV_PORT=9100\n"), 0o600))
	// Existing variables win over the file
	t.Setenv("SRV_PORT", "9200")
	// godotenv sets variables process wide, register them for restoration
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("BROKER", "")
	require.NoError(t, os.Unsetenv("ACCESS_TOKEN_SECRET"))
	require.NoError(t, os.Unsetenv("BROKER"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.AccessTokenSecret)
	assert.Equal(t, BrokerRedis, cfg.Broker)
	assert.Equal(t, "9200", cfg.SrvPort)
}

func TestLoadMissingEnvFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "secret")
	t.Setenv("DELIVERY_TIMEOUT", "soon")
	t.Setenv("SEND_QUEUE_SIZE", "many")
	t.Setenv("DROP_SLOW_CONSUMERS", "maybe")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DELIVERY_TIMEOUT")
	assert.Contains(t, err.Error(), "SEND_QUEUE_SIZE")
	assert.Contains(t, err.Error(), "DROP_SLOW_CONSUMERS")
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "")
	t.Setenv("BROKER", "kafka")
	t.Setenv("FANOUT_CONCURRENCY", "0")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACCESS_TOKEN_SECRET")
	assert.Contains(t, err.Error(), "BROKER")
	assert.Contains(t, err.Error(), "FANOUT_CONCURRENCY")
}
