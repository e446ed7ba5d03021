package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vitebski/spanner-ddl-exporter/internal/analyzer"
	"github.com/vitebski/spanner-ddl-exporter/internal/config"
	"github.com/vitebski/spanner-ddl-exporter/internal/connector"
	"github.com/vitebski/spanner-ddl-exporter/internal/dialect"
	"github.com/vitebski/spanner-ddl-exporter/internal/exporter"
	"github.com/vitebski/spanner-ddl-exporter/internal/loader"
	"github.com/vitebski/spanner-ddl-exporter/internal/utils"
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

type options struct {
	schemaFile     string
	fromDB         bool
	driver         string
	host           string
	user           string
	password       string
	database       string
	port           string
	dbSchema       string
	output         string
	envFile        string
	logLevel       string
	sequenceTable  string
	sequenceColumn string
	workers        int
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "spanner-ddl-exporter",
		Short: "Generate Cloud Spanner DDL from a relational schema model",
		Long: `Spanner DDL Exporter

Reads a relational schema model from a YAML file or a live MySQL/Postgres
database and prints the Cloud Spanner CREATE or DROP statements for it,
deriving primary keys for collection tables and ordering tables by their
dependencies.`,
		SilenceUsage: true,
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Print CREATE TABLE statements in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(se *exporter.SchemaExporter, schema *models.Schema) ([]string, error) {
				return se.CreateScript(schema)
			})
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop",
		Short: "Print DROP INDEX and DROP TABLE statements in reverse dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(se *exporter.SchemaExporter, schema *models.Schema) ([]string, error) {
				return se.DropScript(schema)
			})
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print how every table will be keyed and ordered",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer env.close()

			schemaAnalyzer := analyzer.NewSchemaAnalyzer(env.schema, env.logger)
			schemaAnalyzer.AnalyzeSchema()
			tableExporter := exporter.NewTableExporter(dialect.NewSpannerDialect(), env.cfg.SequenceTable(), env.logger)

			return withOutput(env.cfg.Output, func(w io.Writer) error {
				utils.PrintSchemaAnalysis(w, schemaAnalyzer, tableExporter)
				return nil
			})
		},
	}

	// Define flags
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.schemaFile, "schema-file", "f", "", "YAML schema model to export")
	flags.BoolVar(&opts.fromDB, "from-db", false, "Read the schema model from the source database")
	flags.StringVar(&opts.driver, "driver", "", "Source database driver (mysql, pgx)")
	flags.StringVarP(&opts.host, "host", "H", "", "Source database host (default: localhost)")
	flags.StringVarP(&opts.user, "user", "u", "", "Source database user (default: root)")
	flags.StringVarP(&opts.password, "password", "p", "", "Source database password")
	flags.StringVarP(&opts.database, "database", "d", "", "Source database name")
	flags.StringVarP(&opts.port, "port", "P", "", "Source database port (default: 3306 or 5432)")
	flags.StringVar(&opts.dbSchema, "db-schema", "", "Postgres schema to introspect (default: public)")
	flags.StringVarP(&opts.output, "output", "o", "", "Write statements to this file instead of stdout")
	flags.StringVarP(&opts.envFile, "env-file", "e", ".env", "Path to .env file")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.sequenceTable, "sequence-table", "", "Name of the sequence emulation table (default: hibernate_sequence)")
	flags.StringVar(&opts.sequenceColumn, "sequence-column", "", "Value column of the sequence emulation table (default: next_val)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "Number of tables rendered concurrently (default: 4)")

	rootCmd.AddCommand(createCmd, dropCmd, analyzeCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type runEnv struct {
	cfg    *config.Config
	logger *logrus.Logger
	schema *models.Schema
	db     *connector.DatabaseConnector
}

func (e *runEnv) close() {
	if e.db != nil {
		e.db.Disconnect()
	}
}

func run(cmd *cobra.Command, opts *options, script func(*exporter.SchemaExporter, *models.Schema) ([]string, error)) error {
	env, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer env.close()

	tableExporter := exporter.NewTableExporter(dialect.NewSpannerDialect(), env.cfg.SequenceTable(), env.logger)
	schemaExporter := exporter.NewSchemaExporter(tableExporter, env.cfg.Workers, env.logger)

	statements, err := script(schemaExporter, env.schema)
	if err != nil {
		return err
	}
	env.logger.Infof("Generated %d statements for %d tables", len(statements), len(env.schema.Tables))

	return withOutput(env.cfg.Output, func(w io.Writer) error {
		return utils.WriteStatements(w, statements)
	})
}

// setup loads the configuration, applies flag overrides and reads the schema model
func setup(cmd *cobra.Command, opts *options) (*runEnv, error) {
	// .env is read before the level is known, so the bootstrap logger uses the flag only
	logger := utils.SetupLogging(opts.logLevel)
	utils.LoadEnvironmentVariables(opts.envFile, logger)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger = utils.SetupLogging(cfg.LogLevel)
	env := &runEnv{cfg: cfg, logger: logger}

	if cfg.Source.File != "" {
		env.schema, err = loader.LoadYAML(cfg.Source.File)
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded %d tables from %s", len(env.schema.Tables), cfg.Source.File)
		return env, nil
	}

	db := connector.NewDatabaseConnector(
		cfg.Source.Driver,
		cfg.Source.Host,
		cfg.Source.User,
		cfg.Source.Password,
		cfg.Source.Database,
		cfg.Source.Port,
		logger,
	)
	if err := db.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	env.db = db

	introspector, err := loader.NewIntrospector(db, cfg.Source.Driver, cfg.IntrospectionSchema(), logger)
	if err != nil {
		env.close()
		return nil, err
	}
	env.schema, err = introspector.Load()
	if err != nil {
		env.close()
		return nil, err
	}
	return env, nil
}

func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	flags := cmd.Flags()
	override := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}

	override("log-level", &cfg.LogLevel, opts.logLevel)
	override("output", &cfg.Output, opts.output)
	override("sequence-table", &cfg.Sequence.Table, opts.sequenceTable)
	override("sequence-column", &cfg.Sequence.ValueColumn, opts.sequenceColumn)
	override("schema-file", &cfg.Source.File, opts.schemaFile)
	override("host", &cfg.Source.Host, opts.host)
	override("user", &cfg.Source.User, opts.user)
	override("password", &cfg.Source.Password, opts.password)
	override("database", &cfg.Source.Database, opts.database)
	override("db-schema", &cfg.Source.Schema, opts.dbSchema)
	if flags.Changed("driver") {
		cfg.Source.Driver = opts.driver
		if !flags.Changed("port") && os.Getenv(config.EnvPrefix+"SOURCE_PORT") == "" {
			cfg.Source.Port = connector.DefaultPort(opts.driver)
		}
	}
	override("port", &cfg.Source.Port, opts.port)
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if opts.fromDB {
		cfg.Source.File = ""
	}
}

func withOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
