// Package config loads the application configuration from an optional
// YAML file, with environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "1500ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	// DataDir holds the database and the session artifact.
	DataDir string       `yaml:"data_dir"`
	Crawl   CrawlConfig  `yaml:"crawl"`
	Enrich  EnrichConfig `yaml:"enrich"`
	Logging LogConfig    `yaml:"logging"`
	Serve   ServeConfig  `yaml:"serve"`
}

type CrawlConfig struct {
	Headless        bool     `yaml:"headless"`
	ChromePath      string   `yaml:"chrome_path"`
	IdleThreshold   Duration `yaml:"idle_threshold"`
	StabilityCycles int      `yaml:"stability_cycles"`
	SettleDelay     Duration `yaml:"settle_delay"`
	InitialWait     Duration `yaml:"initial_wait"`
}

type EnrichConfig struct {
	Timeout     Duration `yaml:"timeout"`
	SkipDomains []string `yaml:"skip_domains"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ServeConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Crawl: CrawlConfig{
			Headless:        true,
			IdleThreshold:   Duration(2 * time.Second),
			StabilityCycles: 2,
			SettleDelay:     Duration(1500 * time.Millisecond),
			InitialWait:     Duration(3 * time.Second),
		},
		Enrich: EnrichConfig{
			Timeout: Duration(10 * time.Second),
		},
		Logging: LogConfig{Level: "info"},
		Serve:   ServeConfig{Host: "127.0.0.1", Port: 8387},
	}
}

// Load reads the config file at path. An empty path means "use the
// defaults, no file required"; an explicit path that does not exist is
// an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("XMARKD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("XMARKD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("XMARKD_CHROME_PATH"); v != "" {
		c.Crawl.ChromePath = v
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}
	return nil
}

// DBPath is where the bookmark database lives.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "bookmarks.db")
}

// SessionPath is where the browser session artifact lives.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session", "state.json")
}
