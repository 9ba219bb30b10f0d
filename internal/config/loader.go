package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "FOP_ENGINE"
	defaultConfigPath = "config/config.yaml"
)

// Load reads the configuration file at configPath. ${VAR} placeholders in
// the file are expanded before parsing and FOP_ENGINE_* variables override
// file values.
func Load(configPath string) (*Config, error) {
	return load(configPath, false)
}

// LoadWithDefaults is Load with defaults for every optional field. A missing
// file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	cfg, err := load(configPath, true)
	if err != nil {
		return nil, err
	}
	// a platform list cannot come from the environment
	if len(cfg.Platforms) == 0 {
		cfg.Platforms = []PlatformConfig{{Name: "A"}}
	}
	return cfg, nil
}

func load(configPath string, withDefaults bool) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	if withDefaults {
		setDefaults(v)
	}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist) && withDefaults:
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := v.ReadConfig(strings.NewReader(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fop-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("competition.name", "Competition")
	v.SetDefault("competition.locale", "en")

	v.SetDefault("display.enabled", true)
	v.SetDefault("display.port", 8080)

	v.SetDefault("rankings.cache_ttl_seconds", 300)
	v.SetDefault("rankings.refresh_cron", "*/1 * * * *")
	v.SetDefault("rankings.top_n", 10)

	v.SetDefault("publish.rate_limit", 2.0)
	v.SetDefault("publish.burst", 4)
	v.SetDefault("publish.retry_max", 3)
	v.SetDefault("publish.timeout_seconds", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)
}
