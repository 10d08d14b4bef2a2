package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sp3dr4/tern/internal/domain"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	App      AppConfig      `mapstructure:"app"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Type     string         `mapstructure:"type"` // memory, sqlite, postgres, mongo
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type AppConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	ShortCodeLength int    `mapstructure:"short_code_length"`
	CodeEncoding    string `mapstructure:"code_encoding"` // hex, base62
	MaxSalt         int    `mapstructure:"max_salt"`
}

// CacheConfig sizes the in-process LRU and bounds coalesced fetches.
type CacheConfig struct {
	Capacity     int           `mapstructure:"capacity"`
	Shards       int           `mapstructure:"shards"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	Namespace       string `mapstructure:"namespace"`
	Subsystem       string `mapstructure:"subsystem"`
	CollectRuntime  bool   `mapstructure:"collect_runtime"`
	CollectDatabase bool   `mapstructure:"collect_database"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tern/")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.sqlite.path", "./data/tern.db")
	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo.database", "tinyurl")
	v.SetDefault("database.mongo.collection", "url_mappings")

	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.short_code_length", 8)
	v.SetDefault("app.code_encoding", "hex")
	v.SetDefault("app.max_salt", 999)

	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.shards", 1)
	v.SetDefault("cache.fetch_timeout", "5s")
	v.SetDefault("cache.wait_timeout", "3s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "tern.mappings")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "tern")
	v.SetDefault("metrics.subsystem", "shortener")
	v.SetDefault("metrics.collect_runtime", true)
	v.SetDefault("metrics.collect_database", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects settings the core cannot be constructed with.
func (c *Config) Validate() error {
	if c.Cache.Capacity <= 0 {
		return &domain.ConfigError{Field: "cache.capacity", Reason: "must be greater than zero"}
	}
	if c.Cache.Shards <= 0 {
		return &domain.ConfigError{Field: "cache.shards", Reason: "must be greater than zero"}
	}
	if c.App.ShortCodeLength <= 0 {
		return &domain.ConfigError{Field: "app.short_code_length", Reason: "must be greater than zero"}
	}
	if c.App.MaxSalt <= 0 {
		return &domain.ConfigError{Field: "app.max_salt", Reason: "must be greater than zero"}
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return c.Database.Postgres.URL
	case "mongo":
		return c.Database.Mongo.URI
	default:
		return ""
	}
}
