// Package config loads settings from an optional YAML file under
// ~/.timesheets, with environment variables taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/craiga/timesheets/internal/domain"
)

const (
	dirName      = ".timesheets"
	fileName     = "config.yaml"
	cacheDBName  = "http-cache.db"
	defaultCache = time.Hour
)

// Config holds all settings for one invocation.
type Config struct {
	Harvest struct {
		Token     string
		AccountID string
		BaseURL   string
	}
	Timing struct {
		Token   string
		BaseURL string
	}
	Sync struct {
		Timezone string        // IANA name; empty means process-local
		Rounding time.Duration // 0 means exact fractional hours
	}
	Cache struct {
		Enabled bool
		Path    string
		TTL     time.Duration
	}
}

// fileConfig is the YAML shape. Durations are strings for ParseDuration.
type fileConfig struct {
	Harvest struct {
		Token     string `yaml:"token"`
		AccountID string `yaml:"account_id"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"harvest"`
	Timing struct {
		Token   string `yaml:"token"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"timing"`
	Sync struct {
		Timezone string `yaml:"timezone"`
		Rounding string `yaml:"rounding"`
	} `yaml:"sync"`
	Cache struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
		TTL     string `yaml:"ttl"`
	} `yaml:"cache"`
}

// Load reads the config file at path (default: ~/.timesheets/config.yaml if
// it exists), then overlays environment variables.
func Load(path string) (Config, error) {
	var cfg Config
	cfg.Cache.TTL = defaultCache

	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, dirName, fileName)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if cfg.Cache.Enabled && cfg.Cache.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolving cache path: %w", err)
		}
		cfg.Cache.Path = filepath.Join(home, dirName, cacheDBName)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	c.Harvest.Token = fc.Harvest.Token
	c.Harvest.AccountID = fc.Harvest.AccountID
	c.Harvest.BaseURL = fc.Harvest.BaseURL
	c.Timing.Token = fc.Timing.Token
	c.Timing.BaseURL = fc.Timing.BaseURL
	c.Sync.Timezone = fc.Sync.Timezone
	c.Cache.Enabled = fc.Cache.Enabled
	c.Cache.Path = fc.Cache.Path

	if fc.Sync.Rounding != "" {
		d, err := time.ParseDuration(fc.Sync.Rounding)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid sync.rounding %q", fc.Sync.Rounding)
		}
		c.Sync.Rounding = d
	}
	if fc.Cache.TTL != "" {
		d, err := time.ParseDuration(fc.Cache.TTL)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid cache.ttl %q", fc.Cache.TTL)
		}
		c.Cache.TTL = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HARVEST_PERSONAL_ACCESS_TOKEN"); v != "" {
		c.Harvest.Token = v
	}
	if v := os.Getenv("HARVEST_ACCOUNT_ID"); v != "" {
		c.Harvest.AccountID = v
	}
	if v := os.Getenv("HARVEST_BASE_URL"); v != "" {
		c.Harvest.BaseURL = v
	}
	if v := os.Getenv("TIMING_PERSONAL_ACCESS_TOKEN"); v != "" {
		c.Timing.Token = v
	}
	if v := os.Getenv("TIMING_BASE_URL"); v != "" {
		c.Timing.BaseURL = v
	}
	if v := os.Getenv("TIMESHEETS_TZ"); v != "" {
		c.Sync.Timezone = v
	}
	if v := os.Getenv("TIMESHEETS_ROUNDING"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("TIMESHEETS_ROUNDING must be a duration, got %q", v)
		}
		c.Sync.Rounding = d
	}
	return nil
}

// RequireHarvest checks credentials needed by Harvest commands.
func (c *Config) RequireHarvest() error {
	if c.Harvest.Token == "" || c.Harvest.AccountID == "" {
		return fmt.Errorf("%w: set HARVEST_PERSONAL_ACCESS_TOKEN and HARVEST_ACCOUNT_ID"+
			" (see https://id.getharvest.com/developers)", domain.ErrAuth)
	}
	return nil
}

// RequireTiming checks credentials needed by Timing commands.
func (c *Config) RequireTiming() error {
	if c.Timing.Token == "" {
		return fmt.Errorf("%w: set TIMING_PERSONAL_ACCESS_TOKEN"+
			" (see https://web.timingapp.com/integrations/tokens)", domain.ErrAuth)
	}
	return nil
}

// Location resolves the configured timezone, defaulting to process-local.
func (c *Config) Location() (*time.Location, error) {
	if c.Sync.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Sync.Timezone, err)
	}
	return loc, nil
}
