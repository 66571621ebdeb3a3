package shardcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, defaultConfig, *cfg)
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("SHARD_NAMESPACE", "arena-7")
	t.Setenv("SHARD_MODE", string(RunModeProd))
	t.Setenv("REDIS_ADDRESS", "redis.internal:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("SHARD_TICK_INTERVAL_MILLIS", "50")
	t.Setenv("SHARD_PORT", "9000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "arena-7", cfg.ShardNamespace)
	assert.Equal(t, RunModeProd, cfg.Mode)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddress)
	assert.Equal(t, 50, cfg.TickIntervalMillis)
	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.IsDevMode())
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "prod requires redis password",
			mutate:  func(c *Config) { c.Mode = RunModeProd },
			wantErr: true,
		},
		{
			name: "prod with password",
			mutate: func(c *Config) {
				c.Mode = RunModeProd
				c.RedisPassword = "secret"
			},
			wantErr: false,
		},
		{
			name:    "unknown mode",
			mutate:  func(c *Config) { c.Mode = "staging" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: true,
		},
		{
			name:    "zero tick interval",
			mutate:  func(c *Config) { c.TickIntervalMillis = 0 },
			wantErr: true,
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.CommitTimeoutMillis = -1 },
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := defaultConfig
	cfg.TickIntervalMillis = 250
	assert.Equal(t, "250ms", cfg.TickInterval().String())
	assert.Equal(t, "1s", defaultConfig.SnapshotTimeout().String())
}
