package shardcore

import (
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

const (
	DefaultLogLevel      = "info"
	DefaultRedisAddress  = "localhost:6379"
	DefaultStatsdAddress = "localhost:8125"
)

// RunMode switches between dev conveniences and prod strictness.
type RunMode string

const (
	RunModeProd RunMode = "production"
	RunModeDev  RunMode = "development"
)

// Config drives one coordinator instance. All durations are milliseconds
// so every knob can be set from a plain integer environment variable.
type Config struct {
	// ShardNamespace scopes this simulation's entries in the shared
	// namespace so several shards can share one redis.
	ShardNamespace string  `config:"SHARD_NAMESPACE"`
	Mode           RunMode `config:"SHARD_MODE"`

	RedisAddress  string `config:"REDIS_ADDRESS"`
	RedisPassword string `config:"REDIS_PASSWORD"`
	StatsdAddress string `config:"STATSD_ADDRESS"`

	LogLevel string `config:"SHARD_LOG_LEVEL"`
	Port     int    `config:"SHARD_PORT"`

	// Loop cadences. The tick loop is the fast loop; stats and audit run
	// on their own slower cadences.
	TickIntervalMillis  int `config:"SHARD_TICK_INTERVAL_MILLIS"`
	StatsIntervalMillis int `config:"SHARD_STATS_INTERVAL_MILLIS"`
	AuditIntervalMillis int `config:"SHARD_AUDIT_INTERVAL_MILLIS"`

	// Per-call budgets inside a tick.
	SnapshotTimeoutMillis int `config:"SHARD_SNAPSHOT_TIMEOUT_MILLIS"`
	SystemTimeoutMillis   int `config:"SHARD_SYSTEM_TIMEOUT_MILLIS"`
	CommitTimeoutMillis   int `config:"SHARD_COMMIT_TIMEOUT_MILLIS"`
}

var defaultConfig = Config{
	ShardNamespace:        "defaultshard",
	Mode:                  RunModeDev,
	RedisAddress:          DefaultRedisAddress,
	RedisPassword:         "",
	StatsdAddress:         DefaultStatsdAddress,
	LogLevel:              DefaultLogLevel,
	Port:                  4070,
	TickIntervalMillis:    100,
	StatsIntervalMillis:   10_000,
	AuditIntervalMillis:   60_000,
	SnapshotTimeoutMillis: 1_000,
	SystemTimeoutMillis:   5_000,
	CommitTimeoutMillis:   2_000,
}

// LoadConfig reads the environment over the defaults.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig
	if err := config.FromEnv().To(&cfg); err != nil {
		return nil, eris.Wrap(err, "load config from env")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	switch c.Mode {
	case RunModeDev:
	case RunModeProd:
		if c.RedisPassword == "" {
			return eris.New("redis password is required in production mode")
		}
	default:
		return eris.Errorf("mode must be %q or %q", RunModeProd, RunModeDev)
	}
	if c.TickIntervalMillis <= 0 {
		return eris.New("tick interval must be positive")
	}
	if c.StatsIntervalMillis <= 0 || c.AuditIntervalMillis <= 0 {
		return eris.New("stats and audit intervals must be positive")
	}
	if c.SnapshotTimeoutMillis <= 0 || c.SystemTimeoutMillis <= 0 || c.CommitTimeoutMillis <= 0 {
		return eris.New("phase timeouts must be positive")
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMillis) * time.Millisecond
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalMillis) * time.Millisecond
}

func (c *Config) AuditInterval() time.Duration {
	return time.Duration(c.AuditIntervalMillis) * time.Millisecond
}

func (c *Config) SnapshotTimeout() time.Duration {
	return time.Duration(c.SnapshotTimeoutMillis) * time.Millisecond
}

func (c *Config) SystemTimeout() time.Duration {
	return time.Duration(c.SystemTimeoutMillis) * time.Millisecond
}

func (c *Config) CommitTimeout() time.Duration {
	return time.Duration(c.CommitTimeoutMillis) * time.Millisecond
}

func (c *Config) IsDevMode() bool {
	return c.Mode == RunModeDev
}
