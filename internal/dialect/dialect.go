// Package dialect holds the database-specific syntax fragments consumed by
// the exporters: the CREATE TABLE prefix, the null-column marker, the DROP
// TABLE form and SQL type resolution.
package dialect

import (
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

// Default name and value column of the single-row table used to emulate a
// numeric sequence on databases without native sequences.
const (
	DefaultSequenceTable       = "hibernate_sequence"
	DefaultSequenceValueColumn = "next_val"
)

// Dialect supplies the syntax fragments the exporters need
type Dialect interface {
	// CreateTableString is the statement prefix, e.g. "CREATE TABLE".
	CreateTableString() string
	// NullColumnString is appended to nullable columns. It may be empty.
	NullColumnString() string
	// DropTableString returns the full statement dropping the named table.
	DropTableString(quotedTableName string) string
	// SQLType resolves the column type for this dialect.
	SQLType(column *models.Column, schema *models.Schema) (string, error)
}

// SequenceTable names the sequence-emulation table and its value column.
// The create exporter seeds this table with an initial row.
type SequenceTable struct {
	Name        string
	ValueColumn string
}

// DefaultSequence returns the conventional sequence table settings
func DefaultSequence() SequenceTable {
	return SequenceTable{
		Name:        DefaultSequenceTable,
		ValueColumn: DefaultSequenceValueColumn,
	}
}
