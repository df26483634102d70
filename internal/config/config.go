// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Queries  QueriesConfig  `mapstructure:"queries"`
	DB       DBConfig       `mapstructure:"db"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScrapeConfig governs pipeline and fetcher behavior.
type ScrapeConfig struct {
	SiteRoot       string `mapstructure:"site_root"`
	Concurrency    int    `mapstructure:"concurrency"`
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// QueriesConfig selects where search triples come from.
type QueriesConfig struct {
	// Source is "db" (searchqueries table) or "config" (the Triples list).
	Source  string   `mapstructure:"source"`
	Triples []Triple `mapstructure:"triples"`
}

// Triple is one configured search query.
type Triple struct {
	Term  string `mapstructure:"term"`
	City  string `mapstructure:"city"`
	State string `mapstructure:"state"`
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	Table           string `mapstructure:"table"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// SnapshotConfig selects the snapshot backend.
type SnapshotConfig struct {
	// Provider is "none", "memory", "local", or "gcs". The memory provider
	// keeps snapshots for the life of the process only; useful for dry runs.
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for completion notifications. An empty topic
// disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scrape.site_root", "https://www.indeed.com")
	v.SetDefault("scrape.concurrency", 4)
	v.SetDefault("scrape.user_agent", "jobharvester/0.1")
	v.SetDefault("scrape.respect_robots", true)
	v.SetDefault("scrape.timeout_seconds", 15)
	v.SetDefault("queries.source", "db")
	v.SetDefault("db.table", "jobpostings")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("snapshot.provider", "none")
	v.SetDefault("snapshot.prefix", "snapshots")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.SiteRoot == "" {
		return fmt.Errorf("scrape.site_root is required")
	}
	if c.Scrape.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be > 0")
	}
	if c.Scrape.TimeoutSeconds <= 0 {
		return fmt.Errorf("scrape.timeout_seconds must be > 0")
	}
	switch c.Queries.Source {
	case "db", "config":
	default:
		return fmt.Errorf("queries.source must be db or config, got %q", c.Queries.Source)
	}
	switch c.Snapshot.Provider {
	case "none", "memory", "local", "gcs":
	default:
		return fmt.Errorf("snapshot.provider must be none, memory, local, or gcs, got %q", c.Snapshot.Provider)
	}
	if c.Snapshot.Provider == "local" && c.Snapshot.BaseDir == "" {
		return fmt.Errorf("snapshot.base_dir is required for the local provider")
	}
	if c.Snapshot.Provider == "gcs" && c.Snapshot.Bucket == "" {
		return fmt.Errorf("snapshot.bucket is required for the gcs provider")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when a topic is set")
	}
	return nil
}

// FetchTimeout converts the configured timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// ConnLifetime converts the configured pool lifetime into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetimeMin) * time.Minute
}
