// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Scenarios ScenariosConfig `mapstructure:"scenarios"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EngineConfig holds rule parameters.
type EngineConfig struct {
	// Timezone is an IANA zone name used for day boundaries and night play.
	Timezone     string        `mapstructure:"timezone"`
	ChoiceBaseXP int           `mapstructure:"choice_base_xp"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
	TxRetries    int           `mapstructure:"tx_retries"`
}

// ScenariosConfig points at the scenario assets.
type ScenariosConfig struct {
	// Path is either a directory of <id>.json files or a single bundle file.
	Path      string `mapstructure:"path"`
	CacheSize int    `mapstructure:"cache_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig selects the profile store.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Location resolves the configured time zone.
func (e *EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// ZerologLevel parses the configured level, defaulting to info.
func (l *LogConfig) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil || l.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, ENGINE_TIMEZONE, STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// env vars alone are enough
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Engine.ChoiceBaseXP < 0 {
		return fmt.Errorf("engine.choice_base_xp must be >= 0, got %d", c.Engine.ChoiceBaseXP)
	}
	if c.Engine.TxRetries < 0 {
		return fmt.Errorf("engine.tx_retries must be >= 0, got %d", c.Engine.TxRetries)
	}
	if _, err := c.Engine.Location(); err != nil {
		return err
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "conscience")
	v.SetDefault("database.name", "conscience")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", "15s")

	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("engine.choice_base_xp", 10)
	v.SetDefault("engine.lock_timeout", "5s")
	v.SetDefault("engine.tx_retries", 3)

	v.SetDefault("scenarios.path", "scenarios")
	v.SetDefault("scenarios.cache_size", 64)

	v.SetDefault("log.level", "info")

	v.SetDefault("storage.driver", DriverPostgres)
}
