package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RewardsConfig holds tunables of the rewards engine itself.
type RewardsConfig struct {
	// LeaderboardBroadcastInterval is how often the leaderboard is pushed
	// to websocket subscribers.
	LeaderboardBroadcastInterval time.Duration `mapstructure:"leaderboard_broadcast_interval"`
	LeaderboardBroadcastSize     int           `mapstructure:"leaderboard_broadcast_size"`
}

// ChainConfig holds the Flare testnet watcher settings. The watcher is
// off unless an RPC URL and vault address are both configured.
type ChainConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	RPCURL       string        `mapstructure:"rpc_url"`
	VaultAddress string        `mapstructure:"vault_address"`
	StartBlock   uint64        `mapstructure:"start_block"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Config is the root configuration for the rewards service.
type Config struct {
	Debug    bool           `mapstructure:"debug"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Chain    ChainConfig    `mapstructure:"chain"`
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from the environment, optionally seeded from a
// .env file. Environment variables use the REWARDS_ prefix with underscores
// for nesting, e.g. REWARDS_DATABASE_HOST.
func Load() (*Config, error) {
	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("REWARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rewards")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "rewards")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "file://migrations")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("rewards.leaderboard_broadcast_interval", time.Minute)
	v.SetDefault("rewards.leaderboard_broadcast_size", 100)
	v.SetDefault("chain.enabled", false)
	v.SetDefault("chain.rpc_url", "")
	v.SetDefault("chain.vault_address", "")
	v.SetDefault("chain.start_block", 0)
	v.SetDefault("chain.poll_interval", 15*time.Second)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Rewards.LeaderboardBroadcastSize <= 0 {
		return fmt.Errorf("leaderboard broadcast size must be positive")
	}
	if c.Chain.Enabled && (c.Chain.RPCURL == "" || c.Chain.VaultAddress == "") {
		return fmt.Errorf("chain watcher requires rpc_url and vault_address")
	}
	return nil
}
