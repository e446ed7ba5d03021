package exporter

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/spanner-ddl-exporter/internal/analyzer"
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
	"golang.org/x/sync/errgroup"
)

// SchemaExporter produces the statements for a whole schema, ordering tables
// by their dependencies
type SchemaExporter struct {
	Exporter Exporter
	Workers  int
	Logger   *logrus.Logger
}

// NewSchemaExporter creates a new schema exporter
func NewSchemaExporter(exporter Exporter, workers int, logger *logrus.Logger) *SchemaExporter {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SchemaExporter{
		Exporter: exporter,
		Workers:  workers,
		Logger:   logger,
	}
}

// CreateScript returns the create statements of every table, parents before dependents
func (se *SchemaExporter) CreateScript(schema *models.Schema) ([]string, error) {
	sa := analyzer.NewSchemaAnalyzer(schema, se.Logger)
	sa.AnalyzeSchema()

	tables, err := se.resolve(schema, sa.GetCreationOrder())
	if err != nil {
		return nil, err
	}

	return se.generate(tables, func(t *models.Table) ([]string, error) {
		return se.Exporter.GenerateCreateStatements(t, schema)
	})
}

// DropScript returns the drop statements of every table, dependents before parents
func (se *SchemaExporter) DropScript(schema *models.Schema) ([]string, error) {
	sa := analyzer.NewSchemaAnalyzer(schema, se.Logger)
	sa.AnalyzeSchema()

	tables, err := se.resolve(schema, sa.GetDropOrder())
	if err != nil {
		return nil, err
	}

	return se.generate(tables, func(t *models.Table) ([]string, error) {
		return se.Exporter.GenerateDropStatements(t, schema), nil
	})
}

func (se *SchemaExporter) resolve(schema *models.Schema, order []string) ([]*models.Table, error) {
	tables := make([]*models.Table, 0, len(order))
	for _, name := range order {
		table := schema.Table(name)
		if table == nil {
			return nil, fmt.Errorf("exporter: table %s not found in schema", name)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// generate runs gen for every table on a bounded worker pool and
// concatenates the results in table order
func (se *SchemaExporter) generate(tables []*models.Table, gen func(*models.Table) ([]string, error)) ([]string, error) {
	results := make([][]string, len(tables))

	var g errgroup.Group
	g.SetLimit(se.Workers)
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			statements, err := gen(table)
			if err != nil {
				return err
			}
			se.Logger.Debugf("Generated %d statement(s) for table %s", len(statements), table.Name)
			results[i] = statements
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var statements []string
	for _, r := range results {
		statements = append(statements, r...)
	}
	return statements, nil
}
