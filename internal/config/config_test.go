package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level info, got %q", cfg.LogLevel)
	}
	if cfg.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Workers)
	}
	if cfg.Sequence.Table != "hibernate_sequence" || cfg.Sequence.ValueColumn != "next_val" {
		t.Errorf("Unexpected sequence defaults: %+v", cfg.Sequence)
	}
	if cfg.Source.Driver != "mysql" || cfg.Source.Port != "3306" {
		t.Errorf("Unexpected source defaults: %+v", cfg.Source)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DDL_WORKERS", "2")
	t.Setenv("DDL_SEQUENCE_TABLE", "id_gen")
	t.Setenv("DDL_SEQUENCE_COLUMN", "counter")
	t.Setenv("DDL_SOURCE_DRIVER", "pgx")
	t.Setenv("DDL_SOURCE_DATABASE", "shop")
	t.Setenv("DDL_SOURCE_SCHEMA", "sales")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Workers)
	}
	if seq := cfg.SequenceTable(); seq.Name != "id_gen" || seq.ValueColumn != "counter" {
		t.Errorf("Unexpected sequence table %+v", seq)
	}
	if cfg.Source.Port != "5432" {
		t.Errorf("Expected the postgres default port, got %q", cfg.Source.Port)
	}
	if got := cfg.IntrospectionSchema(); got != "sales" {
		t.Errorf("Expected postgres introspection schema sales, got %q", got)
	}
}

func TestLoadInvalidWorkers(t *testing.T) {
	t.Setenv("DDL_WORKERS", "many")
	if _, err := Load(); err == nil {
		t.Error("Expected an error for a non-numeric worker count")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Workers:  1,
			Sequence: SequenceConfig{Table: "hibernate_sequence", ValueColumn: "next_val"},
			Source:   SourceConfig{Driver: "mysql", Database: "shop"},
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{name: "valid database source", mutate: func(*Config) {}},
		{name: "schema file needs no database", mutate: func(c *Config) { c.Source = SourceConfig{File: "schema.yaml"} }},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, errContains: "workers"},
		{name: "empty sequence column", mutate: func(c *Config) { c.Sequence.ValueColumn = "" }, errContains: "sequence"},
		{name: "unknown driver", mutate: func(c *Config) { c.Source.Driver = "oracle" }, errContains: "unsupported source driver"},
		{name: "no source", mutate: func(c *Config) { c.Source.Database = "" }, errContains: "schema file or a source database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}

func TestIntrospectionSchemaMySQL(t *testing.T) {
	cfg := &Config{Source: SourceConfig{Driver: "mysql", Database: "shop", Schema: "public"}}
	if got := cfg.IntrospectionSchema(); got != "shop" {
		t.Errorf("Expected mysql to introspect the database, got %q", got)
	}
}
