// Package config loads ez-netmap settings from defaults, a YAML file, EZNETMAP_*
// environment variables and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix      = "EZNETMAP_"
	DefaultListen  = ":8080"
	DefaultTimeout = 10 * time.Second
)

var configFileNames = []string{"ez-netmap.yaml", "ez-netmap.yml"}

// Config holds every setting of the application.
type Config struct {
	DataDir  string        `koanf:"data_dir"`
	APIURL   string        `koanf:"api_url"`
	Listen   string        `koanf:"listen"`
	LogLevel string        `koanf:"log_level"`
	LogFile  string        `koanf:"log_file"`
	Timeout  time.Duration `koanf:"timeout"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// Remote reports whether views are persisted through the API rather than locally.
func (c *Config) Remote() bool {
	return c.APIURL != ""
}

// RegisterFlags adds the flags Load understands to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default ./ez-netmap.yaml)")
	flags.String("data-dir", ".", "directory holding .ez-netmap/")
	flags.String("api-url", "", "views API base URL; empty stores views locally")
	flags.String("listen", DefaultListen, "address the API server listens on")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-file", "", "log file (default <data-dir>/.ez-netmap/ez-netmap.log)")
	flags.Duration("timeout", DefaultTimeout, "API request timeout")
}

// Load builds the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":  ".",
		"api_url":   "",
		"listen":    DefaultListen,
		"log_level": "info",
		"log_file":  "",
		"timeout":   DefaultTimeout.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	var explicit string
	if flags != nil {
		explicit, _ = flags.GetString("config")
	}
	fileUsed := findConfigFile(explicit)
	if fileUsed != "" {
		if err := k.Load(file.Provider(fileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", fileUsed, err)
		}
	}

	// EZNETMAP_API_URL -> api_url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = fileUsed

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	abs, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir %q: %w", c.DataDir, err)
	}
	c.DataDir = abs
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, ".ez-netmap", "ez-netmap.log")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// findConfigFile returns explicit, or the first default config file in the working
// directory, or "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFileNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
