package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.PostgresURL)
	assert.Equal(t, "public", cfg.PostgresSchema)
	assert.Equal(t, "course-events", cfg.EventsTopic)
	assert.Equal(t, "course-indexer", cfg.ConsumerGroup)
	assert.True(t, cfg.WorkerEnabled)
	assert.False(t, cfg.WSEnabled)
	assert.True(t, cfg.HTTPEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1000, cfg.QueryMaxFirst)
	assert.Equal(t, time.Second, cfg.WSReconnectDelay)
	assert.False(t, cfg.DirectMode())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_URL", "postgres://u:p@localhost/db")
	t.Setenv("WORKER_ENABLED", "false")
	t.Setenv("WS_ENABLED", "1")
	t.Setenv("WS_URL", "wss://node.example.com")
	t.Setenv("WS_RECONNECT_DELAY", "3s")
	t.Setenv("EVENTS_TOPIC", "events")
	t.Setenv("QUERY_MAX_FIRST", "50")
	t.Setenv("ADMIN_TOKEN", "s3cret")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.PostgresURL)
	assert.False(t, cfg.WorkerEnabled)
	assert.True(t, cfg.WSEnabled)
	assert.Equal(t, 3*time.Second, cfg.WSReconnectDelay)
	assert.Equal(t, "events", cfg.EventsTopic)
	assert.Equal(t, 50, cfg.QueryMaxFirst)
	assert.Equal(t, "s3cret", cfg.AdminToken)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DirectMode())
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"max first", "QUERY_MAX_FIRST", "0"},
		{"reconnect delay", "WS_RECONNECT_DELAY", "soon"},
		{"max retries", "WS_MAX_RETRIES", "many"},
		{"check interval", "BACKFILL_CHECK_INTERVAL", "hourly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"worker without redis", Config{WorkerEnabled: true}, true},
		{"websocket without url", Config{WSEnabled: true}, true},
		{"direct mode", Config{WSEnabled: true, WSURL: "ws://node"}, false},
		{"api only", Config{HTTPEnabled: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
