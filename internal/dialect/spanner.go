package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

// ErrUnknownType is returned when a column's logical type has no Spanner equivalent.
var ErrUnknownType = errors.New("dialect: unknown column type")

// DefaultStringLength is used for STRING and BYTES columns without an explicit length.
const DefaultStringLength = 255

// maxSizedLength is the largest length Spanner accepts before MAX is required.
const maxSizedLength = 2621440

// SpannerDialect renders Cloud Spanner syntax
type SpannerDialect struct{}

// NewSpannerDialect creates a new Spanner dialect
func NewSpannerDialect() *SpannerDialect {
	return &SpannerDialect{}
}

// CreateTableString returns the CREATE TABLE prefix
func (d *SpannerDialect) CreateTableString() string {
	return "CREATE TABLE"
}

// NullColumnString is empty: columns are nullable unless marked NOT NULL.
func (d *SpannerDialect) NullColumnString() string {
	return ""
}

// DropTableString returns the DROP TABLE statement for a table
func (d *SpannerDialect) DropTableString(quotedTableName string) string {
	return "DROP TABLE " + quotedTableName
}

// SQLType resolves the Spanner column type. An explicit Column.SQLType is
// returned unchanged; otherwise the logical DataType is mapped.
func (d *SpannerDialect) SQLType(column *models.Column, schema *models.Schema) (string, error) {
	if sqlType := strings.TrimSpace(column.SQLType); sqlType != "" {
		return sqlType, nil
	}

	kind := strings.ToLower(strings.TrimSpace(column.DataType))
	// Drop any size suffix such as varchar(64); the length comes from Column.Length.
	if i := strings.IndexByte(kind, '('); i >= 0 {
		kind = strings.TrimSpace(kind[:i])
	}

	switch kind {
	case "bool", "boolean", "bit":
		return "BOOL", nil
	case "int", "integer", "int64", "bigint", "smallint", "tinyint", "mediumint",
		"serial", "bigserial", "smallserial":
		return "INT64", nil
	case "float", "float64", "double", "double precision", "real":
		return "FLOAT64", nil
	case "decimal", "numeric":
		return "NUMERIC", nil
	case "string", "varchar", "character varying", "char", "character", "nchar", "nvarchar", "enum", "set":
		return sized("STRING", column.Length), nil
	case "text", "tinytext", "mediumtext", "longtext", "clob":
		return "STRING(MAX)", nil
	case "uuid":
		return "STRING(36)", nil
	case "bytes", "binary", "varbinary":
		return sized("BYTES", column.Length), nil
	case "blob", "tinyblob", "mediumblob", "longblob", "bytea":
		return "BYTES(MAX)", nil
	case "date":
		return "DATE", nil
	case "timestamp", "datetime", "time", "timestamptz",
		"timestamp without time zone", "timestamp with time zone":
		return "TIMESTAMP", nil
	case "json", "jsonb":
		return "JSON", nil
	}

	return "", fmt.Errorf("%w: %q for column %s", ErrUnknownType, column.DataType, column.Name)
}

func sized(base string, length *int64) string {
	n := int64(DefaultStringLength)
	if length != nil && *length > 0 {
		n = *length
	}
	if n > maxSizedLength {
		return base + "(MAX)"
	}
	return fmt.Sprintf("%s(%d)", base, n)
}
