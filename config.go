package valtron

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ewe-studios/go-valtron/core"
)

// Journal driver names accepted by Config.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalSQLite = "sqlite"
)

// Config is the file-based engine configuration. Zero fields keep the
// built-in Options defaults, so a partial file is fine.
type Config struct {
	Engine struct {
		Workers             int           `yaml:"workers"`
		IntakeCapacity      int           `yaml:"intake_capacity"`
		GlobalQueueCapacity int           `yaml:"global_queue_capacity"`
		ObservationBuffer   int           `yaml:"observation_buffer"`
		GracefulTimeout     time.Duration `yaml:"graceful_timeout"`
	} `yaml:"engine"`

	Logging struct {
		Verbose bool `yaml:"verbose"`
	} `yaml:"logging"`

	Journal struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"journal"`

	Metrics struct {
		Enabled   bool   `yaml:"enabled"`
		Namespace string `yaml:"namespace"`
		Addr      string `yaml:"addr"`
	} `yaml:"metrics"`

	Periodic []PeriodicConfig `yaml:"periodic"`
}

// PeriodicConfig declares one cron-driven submission. Spec is a six-field
// cron expression with a leading seconds field; Workload names the task
// factory the application registers under that name.
type PeriodicConfig struct {
	Name     string `yaml:"name"`
	Spec     string `yaml:"spec"`
	Workload string `yaml:"workload"`
}

// LoadConfig reads and parses a YAML configuration file and fills in the
// defaults for everything the file leaves out.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("valtron: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("valtron: parse config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their working defaults.
func (c *Config) ApplyDefaults() {
	if c.Engine.GracefulTimeout <= 0 {
		c.Engine.GracefulTimeout = 30 * time.Second
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = JournalNone
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "valtron"
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate reports the first configuration mistake it finds.
func (c *Config) Validate() error {
	switch c.Journal.Driver {
	case JournalNone, JournalMemory:
	case JournalSQLite:
		if c.Journal.DSN == "" {
			return fmt.Errorf("valtron: journal driver %q needs a dsn", c.Journal.Driver)
		}
	default:
		return fmt.Errorf("valtron: unknown journal driver %q", c.Journal.Driver)
	}

	seen := make(map[string]bool, len(c.Periodic))
	for i, p := range c.Periodic {
		if p.Name == "" {
			return fmt.Errorf("valtron: periodic entry %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("valtron: duplicate periodic entry %q", p.Name)
		}
		seen[p.Name] = true
		if p.Spec == "" {
			return fmt.Errorf("valtron: periodic entry %q has no cron spec", p.Name)
		}
		if p.Workload == "" {
			return fmt.Errorf("valtron: periodic entry %q has no workload", p.Name)
		}
	}
	return nil
}

// EngineOptions translates the engine and logging sections into Options.
// Journal and metrics backends are wired by the caller; they live in their
// own packages so library users only link what they use.
func (c *Config) EngineOptions() Options {
	opts := Options{
		Workers:             c.Engine.Workers,
		IntakeCapacity:      c.Engine.IntakeCapacity,
		GlobalQueueCapacity: c.Engine.GlobalQueueCapacity,
		ObservationBuffer:   c.Engine.ObservationBuffer,
	}
	if c.Logging.Verbose {
		logger := core.NewDefaultLogger()
		logger.Verbose = true
		opts.Logger = logger
	}
	if c.Journal.Driver == JournalMemory {
		opts.Journal = core.NewMemoryJournal()
	}
	return opts
}
