// Package exporter generates the CREATE and DROP statements that materialize
// or tear down a schema model on Cloud Spanner.
//
// Spanner requires every CREATE TABLE to carry an inline PRIMARY KEY clause
// and has no native sequences, so the exporter derives a key for every table
// and seeds the sequence-emulation table with its first value.
package exporter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/spanner-ddl-exporter/internal/dialect"
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

// ErrUnsupported is wrapped by every UnsupportedError.
var ErrUnsupported = errors.New("exporter: unsupported schema feature")

// UnsupportedError reports a table that uses a feature the exporter cannot render
type UnsupportedError struct {
	Table   string
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("exporter: table %s uses unsupported feature: %s", e.Table, e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

// Exporter produces the statements for a single table
type Exporter interface {
	GenerateCreateStatements(table *models.Table, schema *models.Schema) ([]string, error)
	GenerateDropStatements(table *models.Table, schema *models.Schema) []string
}

// TableExporter renders CREATE and DROP statements for one table at a time.
// It holds no per-call state and is safe for concurrent use.
type TableExporter struct {
	Dialect  dialect.Dialect
	Sequence dialect.SequenceTable
	Logger   *logrus.Logger

	createTableTemplate string
}

// NewTableExporter creates a new table exporter
func NewTableExporter(d dialect.Dialect, sequence dialect.SequenceTable, logger *logrus.Logger) *TableExporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TableExporter{
		Dialect:             d,
		Sequence:            sequence,
		Logger:              logger,
		createTableTemplate: d.CreateTableString() + " %s (%s) PRIMARY KEY (%s)",
	}
}

// GenerateCreateStatements returns the statements creating the table: the
// CREATE TABLE itself and, for the sequence table, the seed row.
func (te *TableExporter) GenerateCreateStatements(table *models.Table, schema *models.Schema) ([]string, error) {
	if table.InterleaveParent != nil {
		return nil, &UnsupportedError{Table: table.Name, Feature: "interleaved in " + table.InterleaveParent.Name}
	}
	if len(table.UniqueKeys) > 0 {
		return nil, &UnsupportedError{Table: table.Name, Feature: "UNIQUE constraint " + table.UniqueKeys[0].Name}
	}

	resolution := te.ResolveKeyColumns(table, schema)

	keyNames := make([]string, 0, len(resolution.Columns))
	for _, c := range resolution.Columns {
		keyNames = append(keyNames, c.QuotedName())
	}

	colsAndTypes := make([]string, 0, len(table.Columns))
	for _, c := range table.Columns {
		sqlType, err := te.Dialect.SQLType(c, schema)
		if err != nil {
			return nil, fmt.Errorf("exporter: table %s: %w", table.Name, err)
		}

		var sb strings.Builder
		sb.WriteString(c.QuotedName())
		sb.WriteByte(' ')
		sb.WriteString(sqlType)
		if c.IsNullable {
			sb.WriteString(te.Dialect.NullColumnString())
		} else {
			sb.WriteString(" not null")
		}
		colsAndTypes = append(colsAndTypes, sb.String())
	}

	statements := []string{
		fmt.Sprintf(te.createTableTemplate,
			table.QuotedName(),
			strings.Join(colsAndTypes, ","),
			strings.Join(keyNames, ",")),
	}

	if table.Name == te.Sequence.Name {
		statements = append(statements, fmt.Sprintf("INSERT INTO %s (%s) VALUES(1)",
			table.QuotedName(), te.Sequence.ValueColumn))
	}

	return statements, nil
}

// GenerateDropStatements returns a DROP INDEX for every index of the table
// followed by the DROP TABLE. Interleaved children are not dropped; the
// database rejects the DROP TABLE if any remain.
func (te *TableExporter) GenerateDropStatements(table *models.Table, schema *models.Schema) []string {
	statements := make([]string, 0, len(table.Indexes)+1)
	for _, idx := range table.Indexes {
		statements = append(statements, "DROP INDEX "+idx.Name)
	}
	return append(statements, te.Dialect.DropTableString(table.QuotedName()))
}
