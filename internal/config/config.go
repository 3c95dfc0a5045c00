// Package config provides tool configuration for pageforge via Viper,
// merging command-line flags, PAGEFORGE_-prefixed environment variables,
// and an optional .pageforge.yml file, in that order of precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/deps"
)

// Config holds every recognized option.
type Config struct {
	Root        string `mapstructure:"root"`         // scan root
	Ext         string `mapstructure:"ext"`          // template suffix
	DryRun      bool   `mapstructure:"dry-run"`      // decide and log without writing
	NoErrorPage bool   `mapstructure:"no-error-pages"` // never write diagnostic pages
	IgnoreMtime bool   `mapstructure:"ignore-mtime"` // always render
	MaxDepth    int    `mapstructure:"depth"`        // dependency BFS bound
	Watch       bool   `mapstructure:"watch"`        // watch the root for changes
	Serve       bool   `mapstructure:"serve"`        // host the tree over HTTP
	Port        int    `mapstructure:"port"`         // server port
	SiteConfig  string `mapstructure:"site-config"`  // site data YAML, "" disables
	Env         string `mapstructure:"env"`          // site data environment overlay
	LogLevel    string `mapstructure:"log-level"`
	LogFormat   string `mapstructure:"log-format"`
}

// Load unmarshals the current viper state, applies defaults, and
// validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Ext == "" {
		cfg.Ext = ".tmpl"
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = deps.DefaultMaxDepth
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Env == "" {
		cfg.Env = "default"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// WatchPath returns the directory to watch, or "" when watching is off.
func (c *Config) WatchPath() string {
	if !c.Watch {
		return ""
	}
	return c.Root
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Ext, ".") {
		return fmt.Errorf("ext %q must start with a dot", cfg.Ext)
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("depth %d must not be negative", cfg.MaxDepth)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", cfg.Port)
	}
	if strings.Contains(filepath.Clean(cfg.SiteConfig), "..") {
		return fmt.Errorf("site-config contains path traversal: %s", cfg.SiteConfig)
	}
	return nil
}
