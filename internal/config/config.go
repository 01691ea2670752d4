// Package config wraps viper with LabTrack's defaults and environment
// binding.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LABTRACK_SERVER_PORT.
const EnvPrefix = "LABTRACK"

// Config is a read-only view over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps v. A nil v gives an empty config.
func New(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
	}
	return &Config{v: v}
}

// Load reads defaults, an optional config file, a .env file in the working
// directory and LABTRACK_* environment variables, later sources winning.
// An empty path searches ./labtrack.yaml and /etc/labtrack/labtrack.yaml;
// a missing file is not an error unless path was given explicitly.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// LABTRACK_API_URL is the documented backend override.
	if err := v.BindEnv("api.base_url", EnvPrefix+"_API_BASE_URL", EnvPrefix+"_API_URL"); err != nil {
		return nil, fmt.Errorf("bind api.base_url: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("labtrack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/labtrack")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return New(v), nil
}

// SetDefaults installs the default value of every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 10)

	v.SetDefault("console.page_size", 50)
	v.SetDefault("console.search_debounce", "300ms")
	v.SetDefault("console.auto_refresh_interval", "30s")
	v.SetDefault("console.toast_ttl", "4s")
	v.SetDefault("console.max_sessions", 100)
	v.SetDefault("console.connect_rate", 5)
	v.SetDefault("console.timezone", "Local")
	v.SetDefault("console.origin_patterns", []string{})

	v.SetDefault("audit.db_path", "labtrack.db")
	v.SetDefault("plugins.audit.default_limit", 50)

	v.SetDefault("log.level", "info")

	v.SetDefault("plugins.console.enabled", true)
	v.SetDefault("plugins.audit.enabled", true)
}

// Viper exposes the underlying instance.
func (c *Config) Viper() *viper.Viper { return c.v }

// GetString returns the value associated with the key as a string.
func (c *Config) GetString(key string) string { return c.v.GetString(key) }

// GetInt returns the value associated with the key as an int.
func (c *Config) GetInt(key string) int { return c.v.GetInt(key) }

// GetFloat64 returns the value associated with the key as a float64.
func (c *Config) GetFloat64(key string) float64 { return c.v.GetFloat64(key) }

// GetBool returns the value associated with the key as a bool.
func (c *Config) GetBool(key string) bool { return c.v.GetBool(key) }

// GetDuration returns the value associated with the key as a duration.
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

// IsSet reports whether the key has a value from any source.
func (c *Config) IsSet(key string) bool { return c.v.IsSet(key) }

// Sub returns the subtree at key. It never returns nil.
func (c *Config) Sub(key string) *Config {
	return New(c.v.Sub(key))
}

// Unmarshal decodes the whole config into target.
func (c *Config) Unmarshal(target any) error { return c.v.Unmarshal(target) }

// Enabled reports whether the named module is switched on. Modules are on
// unless plugins.<name>.enabled is false.
func (c *Config) Enabled(module string) bool {
	key := "plugins." + module + ".enabled"
	if !c.v.IsSet(key) {
		return true
	}
	return c.v.GetBool(key)
}

// Location resolves console.timezone. "Local" and "" mean the process
// zone.
func (c *Config) Location() (*time.Location, error) {
	name := c.v.GetString("console.timezone")
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("console.timezone: %w", err)
	}
	return loc, nil
}
