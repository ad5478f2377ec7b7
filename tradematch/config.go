package tradematch

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/gohye/tradematch/tradematch/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log    LogConfig         `toml:"log"`
	DB     database.DBConfig `toml:"db"`
	Redis  RedisConfig       `toml:"redis"`
	Engine EngineConfig      `toml:"engine"`
	Notify NotifyConfig      `toml:"notify"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// RedisConfig enables the shared redis match cache. When disabled the durable
// postgres store serves alone.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Address  string `toml:"address"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

type EngineConfig struct {
	MinQuality             int `toml:"min_quality"`
	MaxDirectResults       int `toml:"max_direct_results"`
	MaxDepth               int `toml:"max_depth"`
	MaxTriangularResults   int `toml:"max_triangular_results"`
	MaxGraphNodes          int `toml:"max_graph_nodes"`
	CacheTTLMinutes        int `toml:"cache_ttl_minutes"`
	RetentionMinutes       int `toml:"retention_minutes"`
	RefreshIntervalMinutes int `toml:"refresh_interval_minutes"`
	RefreshUsers           int `toml:"refresh_users"`
}

func (c EngineConfig) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func (c EngineConfig) Retention() time.Duration {
	if c.RetentionMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.RetentionMinutes) * time.Minute
}

func (c EngineConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// NotifyConfig configures the discord webhook that announces high quality
// matches. Leaving WebhookID zero disables notifications.
type NotifyConfig struct {
	WebhookID    snowflake.ID `toml:"webhook_id"`
	WebhookToken string       `toml:"webhook_token"`
	MinQuality   int          `toml:"min_quality"`
}
