package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/spanner-ddl-exporter/internal/analyzer"
	"github.com/vitebski/spanner-ddl-exporter/internal/exporter"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	// Get log level from parameter or environment variable
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("DDL_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	// Statements go to stdout, so logs go to stderr
	logger.SetOutput(os.Stderr)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file if it exists.
// Variables already set in the environment take precedence.
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
		logger.Debugf("No %s file found, using existing environment variables", envFile)
		return false
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warningf("Error loading %s file: %v", envFile, err)
		return false
	}
	logger.Debugf("Loaded environment variables from %s", envFile)

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "DDL_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					// Mask password
					if parts[0] == "DDL_SOURCE_PASSWORD" {
						logger.Debugf("%s=********", parts[0])
					} else {
						logger.Debugf("%s=%s", parts[0], parts[1])
					}
				}
			}
		}
	}

	return true
}

// WriteStatements writes one statement per line, each terminated with a semicolon
func WriteStatements(w io.Writer, statements []string) error {
	for _, stmt := range statements {
		if _, err := fmt.Fprintf(w, "%s;\n", stmt); err != nil {
			return err
		}
	}
	return nil
}

// PrintSchemaAnalysis prints a report of how every table will be keyed and ordered
func PrintSchemaAnalysis(w io.Writer, schemaAnalyzer *analyzer.SchemaAnalyzer, tableExporter *exporter.TableExporter) {
	schema := schemaAnalyzer.Schema
	orderedTables := schemaAnalyzer.GetCreationOrder()

	var declared, collections, keyless []string
	var shared []string
	resolutions := make(map[string]exporter.KeyResolution)
	for _, table := range schema.Tables {
		res := tableExporter.ResolveKeyColumns(table, schema)
		resolutions[table.Name] = res
		switch res.Strategy {
		case exporter.DeclaredKey:
			declared = append(declared, table.Name)
		case exporter.CollectionKey:
			collections = append(collections, table.Name)
			if len(res.IgnoredOwners) > 0 {
				shared = append(shared, table.Name)
			}
		default:
			keyless = append(keyless, table.Name)
		}
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
	fmt.Fprintln(w, "SCHEMA ANALYSIS REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "\n1. BASIC STATISTICS")
	fmt.Fprintf(w, "   Total tables: %d\n", len(schema.Tables))
	fmt.Fprintf(w, "   Collection associations: %d\n", len(schema.Collections))
	fmt.Fprintf(w, "   Tables in circular dependencies: %d\n", len(schemaAnalyzer.CircularTables))

	fmt.Fprintln(w, "\n2. PRIMARY KEY DERIVATION")
	fmt.Fprintf(w, "   Declared key: %d\n", len(declared))
	fmt.Fprintf(w, "   Collection tables (keyed on all columns): %d\n", len(collections))
	fmt.Fprintf(w, "   No key columns: %d\n", len(keyless))
	if len(keyless) > 0 {
		fmt.Fprintf(w, "   Tables without key columns: %s\n", strings.Join(keyless, ", "))
	}
	if len(shared) > 0 {
		fmt.Fprintf(w, "   Shared collection tables (first owner used): %s\n", strings.Join(shared, ", "))
	}

	if len(schemaAnalyzer.CircularTables) > 0 {
		fmt.Fprintln(w, "\n3. CIRCULAR DEPENDENCIES")
		var circularTablesList []string
		for _, table := range orderedTables {
			if schemaAnalyzer.CircularTables[table] {
				circularTablesList = append(circularTablesList, table)
			}
		}
		fmt.Fprintf(w, "   Tables involved: %s\n", strings.Join(circularTablesList, ", "))
	}

	fmt.Fprintln(w, "\n4. TABLE CREATION ORDER")
	for i, table := range orderedTables {
		res := resolutions[table]
		detail := res.Strategy.String()
		if res.Strategy == exporter.CollectionKey {
			detail += " of " + res.Owner.Name
		}
		fmt.Fprintf(w, "   %3d. %s (%s)\n", i+1, table, detail)
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 80))
}
