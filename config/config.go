// Package config loads the bridge's configuration: where the function
// catalog lives, which secret store backend to use, and the sandbox
// limits applied to plugins. Sandbox limits are explicit values threaded
// into every load; there is no process-wide mutable default.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/plugsql/plugsql/sandbox"
)

// Config is the bridge configuration.
type Config struct {
	Engine  EngineConfig            `mapstructure:"engine"`
	Secrets SecretsConfig           `mapstructure:"secrets"`
	Sandbox SandboxConfig           `mapstructure:"sandbox"`
	Plugins map[string]PluginConfig `mapstructure:"plugins"`
}

// EngineConfig selects the function catalog backend.
type EngineConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	// DSN is the database location for the sqlite driver, e.g. a file
	// path or ":memory:".
	DSN string `mapstructure:"dsn"`
}

// SecretsConfig selects the secret store backend.
type SecretsConfig struct {
	// Backend is a registered secret store backend, e.g. "keyring".
	Backend string `mapstructure:"backend"`
}

// SandboxConfig mirrors sandbox.Config in file-friendly form.
type SandboxConfig struct {
	MemoryMaxPages uint32            `mapstructure:"memory_max_pages"`
	AllowedHosts   []string          `mapstructure:"allowed_hosts"`
	AllowedPaths   map[string]string `mapstructure:"allowed_paths"`
	Timeout        time.Duration     `mapstructure:"timeout"`
}

// PluginConfig holds the configured plugins, keyed by exposed function
// name. Plugins listed here are defined at startup; a sandbox override
// replaces the defaults for that plugin's locator.
type PluginConfig struct {
	Locator string         `mapstructure:"locator"`
	Sandbox *SandboxConfig `mapstructure:"sandbox"`
}

// defaults are a conservative baseline: a small memory ceiling, one
// allow-listed API host, a passthrough filesystem root and a ten second
// budget.
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.driver", "sqlite")
	v.SetDefault("engine.dsn", "plugsql.db")
	v.SetDefault("secrets.backend", "keyring")
	v.SetDefault("sandbox.memory_max_pages", 5)
	v.SetDefault("sandbox.allowed_hosts", []string{"api.openai.com"})
	v.SetDefault("sandbox.allowed_paths", map[string]string{"/": "/"})
	v.SetDefault("sandbox.timeout", 10*time.Second)
}

// Load reads configuration from path. An empty path loads defaults plus
// environment overrides (PLUGSQL_*).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("PLUGSQL")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// SandboxDefaults converts the configured baseline to a sandbox.Config.
func (c *Config) SandboxDefaults() sandbox.Config {
	return c.Sandbox.toSandbox()
}

// SandboxOverrides returns the per-locator sandbox configurations for
// plugins that declare one.
func (c *Config) SandboxOverrides() map[string]sandbox.Config {
	overrides := make(map[string]sandbox.Config)
	for _, p := range c.Plugins {
		if p.Sandbox != nil {
			overrides[p.Locator] = p.Sandbox.toSandbox()
		}
	}
	return overrides
}

func (s SandboxConfig) toSandbox() sandbox.Config {
	return sandbox.Config{
		MemoryMaxPages: s.MemoryMaxPages,
		AllowedHosts:   s.AllowedHosts,
		AllowedPaths:   s.AllowedPaths,
		Timeout:        s.Timeout,
	}
}
