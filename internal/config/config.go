// Package config provides configuration management for the competition engine.
package config

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"

	"github.com/yourusername/fop-engine/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database" validate:"required"`
	Competition CompetitionConfig `mapstructure:"competition" validate:"required"`
	Platforms   []PlatformConfig  `mapstructure:"platforms" validate:"required,min=1,dive"`
	Display     DisplayConfig     `mapstructure:"display"`
	Rankings    RankingsConfig    `mapstructure:"rankings"`
	Publish     PublishConfig     `mapstructure:"publish"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Health      HealthConfig      `mapstructure:"health"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=text json"`
}

// DatabaseConfig selects the athlete store. The memory driver loads YAML
// fixtures; postgres needs the connection settings.
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver" validate:"required,oneof=memory postgres"`
	FixturesPath       string `mapstructure:"fixtures_path"`
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
}

// CompetitionConfig holds the competition-wide settings every ranking depends on.
type CompetitionConfig struct {
	Name                     string `mapstructure:"name" validate:"required"`
	Date                     string `mapstructure:"date" validate:"omitempty,datetime=2006-01-02"`
	Masters                  bool   `mapstructure:"masters"`
	UseRegistrationCategory  bool   `mapstructure:"use_registration_category"`
	UseOldBodyWeightTieBreak bool   `mapstructure:"use_old_body_weight_tie_break"`
	UseCategorySinclair      bool   `mapstructure:"use_category_sinclair"`
	Enforce20kgRule          bool   `mapstructure:"enforce_20kg_rule"`
	Locale                   string `mapstructure:"locale" validate:"omitempty,locale"`
	ProtocolTemplate         string `mapstructure:"protocol_template"`
	FinalPackageTemplate     string `mapstructure:"final_package_template"`
	LotSeed                  uint64 `mapstructure:"lot_seed"`
}

// PlatformConfig describes one field of play.
type PlatformConfig struct {
	Name              string `mapstructure:"name" validate:"required"`
	InitialGroup      string `mapstructure:"initial_group"`
	ServerSideTimeout bool   `mapstructure:"server_side_timeout"`
	InboxSize         int    `mapstructure:"inbox_size" validate:"gte=0"`
}

// Slug is the URL-safe platform name used in display paths.
func (p PlatformConfig) Slug() string {
	return slug.Make(p.Name)
}

// DisplayConfig represents the WebSocket display server
type DisplayConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RankingsConfig controls the global ranking cache and refresh schedule.
type RankingsConfig struct {
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	RefreshCron     string `mapstructure:"refresh_cron" validate:"omitempty,cronspec"`
	TopN            int    `mapstructure:"top_n" validate:"gte=0"`
}

// PublishConfig represents the remote scoreboard relay
type PublishConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	URL            string  `mapstructure:"url" validate:"omitempty,url"`
	Secret         string  `mapstructure:"secret"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gte=0"`
	Burst          int     `mapstructure:"burst" validate:"gte=0"`
	RetryMax       int     `mapstructure:"retry_max" validate:"gte=0"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// HealthConfig represents the health server
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// SecretsConfig points at the AWS Secrets Manager secret overlaid on startup.
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// UsesPostgres reports whether athletes are stored in PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Database.Driver == "postgres"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// CompetitionModel converts the competition section into the model the
// rankings use.
func (c *Config) CompetitionModel() (*models.Competition, error) {
	cc := c.Competition
	comp := &models.Competition{
		Name:                     cc.Name,
		Masters:                  cc.Masters,
		UseRegistrationCategory:  cc.UseRegistrationCategory,
		UseOldBodyWeightTieBreak: cc.UseOldBodyWeightTieBreak,
		UseCategorySinclair:      cc.UseCategorySinclair,
		Enforce20kgRule:          cc.Enforce20kgRule,
		Locale:                   cc.Locale,
		ProtocolTemplate:         cc.ProtocolTemplate,
		FinalPackageTemplate:     cc.FinalPackageTemplate,
	}
	if cc.Date != "" {
		d, err := time.Parse("2006-01-02", cc.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid competition date %q: %w", cc.Date, err)
		}
		comp.Date = d
	}
	return comp, nil
}

// RankingsCacheTTL returns the ranking cache lifetime; zero keeps entries
// until invalidated.
func (c *Config) RankingsCacheTTL() time.Duration {
	return time.Duration(c.Rankings.CacheTTLSeconds) * time.Second
}

// PublishTimeout returns the per-request scoreboard publish timeout.
func (c *Config) PublishTimeout() time.Duration {
	if c.Publish.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Publish.TimeoutSeconds) * time.Second
}
