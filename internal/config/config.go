package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/vitebski/spanner-ddl-exporter/internal/connector"
	"github.com/vitebski/spanner-ddl-exporter/internal/dialect"
)

// EnvPrefix is prepended to every environment variable read into Config
const EnvPrefix = "DDL_"

type Config struct {
	LogLevel string         `env:"LOG_LEVEL" envDefault:"info"`
	Workers  int            `env:"WORKERS" envDefault:"4"`
	Output   string         `env:"OUTPUT"`
	Sequence SequenceConfig `envPrefix:"SEQUENCE_"`
	Source   SourceConfig   `envPrefix:"SOURCE_"`
}

type SequenceConfig struct {
	Table       string `env:"TABLE" envDefault:"hibernate_sequence"`
	ValueColumn string `env:"COLUMN" envDefault:"next_val"`
}

// SourceConfig describes where the schema model is read from: a YAML file,
// or a live database when File is empty.
type SourceConfig struct {
	File     string `env:"FILE"`
	Driver   string `env:"DRIVER" envDefault:"mysql"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT"`
	User     string `env:"USER" envDefault:"root"`
	Password string `env:"PASSWORD"`
	Database string `env:"DATABASE"`
	// Schema is the Postgres schema to read; MySQL uses Database.
	Schema string `env:"SCHEMA" envDefault:"public"`
}

// Load parses the configuration from DDL_* environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Source.Port == "" {
		cfg.Source.Port = connector.DefaultPort(cfg.Source.Driver)
	}
	return cfg, nil
}

// Validate checks the settings the exporter depends on
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1, got %d", c.Workers)
	}
	if c.Sequence.Table == "" || c.Sequence.ValueColumn == "" {
		return fmt.Errorf("config: sequence table and value column must not be empty")
	}
	if c.Source.File != "" {
		return nil
	}
	switch c.Source.Driver {
	case connector.DriverMySQL, connector.DriverPostgres:
	default:
		return fmt.Errorf("config: unsupported source driver %q", c.Source.Driver)
	}
	if c.Source.Database == "" {
		return fmt.Errorf("config: a schema file or a source database is required")
	}
	return nil
}

// SequenceTable returns the sequence settings in the form the exporter takes
func (c *Config) SequenceTable() dialect.SequenceTable {
	return dialect.SequenceTable{
		Name:        c.Sequence.Table,
		ValueColumn: c.Sequence.ValueColumn,
	}
}

// IntrospectionSchema returns the schema name the introspector reads
func (c *Config) IntrospectionSchema() string {
	if c.Source.Driver == connector.DriverPostgres {
		return c.Source.Schema
	}
	return c.Source.Database
}
