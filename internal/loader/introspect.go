package loader

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/spanner-ddl-exporter/internal/connector"
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

// Querier runs a query and returns its rows as column->value maps.
// *connector.DatabaseConnector satisfies it.
type Querier interface {
	ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error)
}

// introspectionQueries holds the information_schema queries of one database flavour.
// Every query takes the schema name as its only parameter, except columns,
// which also takes the table name.
type introspectionQueries struct {
	tables      string
	columns     string
	primaryKeys string
	indexes     string
	foreignKeys string
}

// MySQL 8 reports information_schema columns in upper case, hence the aliases.
var mysqlQueries = introspectionQueries{
	tables: `
		SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`,
	columns: `
		SELECT
			column_name AS column_name,
			data_type AS data_type,
			character_maximum_length AS character_maximum_length,
			numeric_precision AS numeric_precision,
			numeric_scale AS numeric_scale,
			is_nullable AS is_nullable
		FROM information_schema.columns
		WHERE table_schema = ?
		AND table_name = ?
		ORDER BY ordinal_position
	`,
	primaryKeys: `
		SELECT table_name AS table_name, column_name AS column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND constraint_name = 'PRIMARY'
		ORDER BY table_name, ordinal_position
	`,
	indexes: `
		SELECT DISTINCT table_name AS table_name, index_name AS index_name, non_unique AS non_unique
		FROM information_schema.statistics
		WHERE table_schema = ?
		AND index_name <> 'PRIMARY'
		ORDER BY table_name, index_name
	`,
	foreignKeys: `
		SELECT
			table_name AS table_name,
			column_name AS column_name,
			referenced_table_name AS referenced_table_name,
			referenced_column_name AS referenced_column_name,
			constraint_name AS constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND referenced_table_name IS NOT NULL
		ORDER BY table_name, column_name
	`,
}

var postgresQueries = introspectionQueries{
	tables: `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`,
	columns: `
		SELECT
			column_name,
			data_type,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		AND table_name = $2
		ORDER BY ordinal_position
	`,
	primaryKeys: `
		SELECT kcu.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1
		AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.table_name, kcu.ordinal_position
	`,
	indexes: `
		SELECT
			i.tablename AS table_name,
			i.indexname AS index_name,
			CASE WHEN i.indexdef LIKE 'CREATE UNIQUE%' THEN 0 ELSE 1 END AS non_unique
		FROM pg_indexes i
		WHERE i.schemaname = $1
		AND NOT EXISTS (
			SELECT 1 FROM information_schema.table_constraints tc
			WHERE tc.table_schema = i.schemaname
			AND tc.constraint_name = i.indexname
			AND tc.constraint_type = 'PRIMARY KEY'
		)
		ORDER BY i.tablename, i.indexname
	`,
	foreignKeys: `
		SELECT
			kcu.table_name,
			kcu.column_name,
			ccu.table_name AS referenced_table_name,
			ccu.column_name AS referenced_column_name,
			tc.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
		JOIN information_schema.referential_constraints rc
		ON rc.constraint_name = tc.constraint_name
		AND rc.constraint_schema = tc.table_schema
		JOIN information_schema.key_column_usage ccu
		ON ccu.constraint_name = rc.unique_constraint_name
		AND ccu.constraint_schema = rc.unique_constraint_schema
		AND ccu.ordinal_position = kcu.position_in_unique_constraint
		WHERE tc.table_schema = $1
		AND tc.constraint_type = 'FOREIGN KEY'
		ORDER BY kcu.table_name, tc.constraint_name, kcu.ordinal_position
	`,
}

// Introspector reads a schema model from a live database
type Introspector struct {
	DB      Querier
	Driver  string
	Schema  string
	Logger  *logrus.Logger
	queries introspectionQueries
}

// NewIntrospector creates an introspector for the given driver. schemaName is
// the MySQL database or the Postgres schema to read.
func NewIntrospector(db Querier, driver, schemaName string, logger *logrus.Logger) (*Introspector, error) {
	var queries introspectionQueries
	switch driver {
	case connector.DriverMySQL:
		queries = mysqlQueries
	case connector.DriverPostgres:
		queries = postgresQueries
	default:
		return nil, fmt.Errorf("loader: introspection not supported for driver %q", driver)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Introspector{
		DB:      db,
		Driver:  driver,
		Schema:  schemaName,
		Logger:  logger,
		queries: queries,
	}, nil
}

// Load builds the schema model: tables with ordered columns, primary keys,
// indexes and foreign keys, plus the detected collection tables.
func (in *Introspector) Load() (*models.Schema, error) {
	schema := &models.Schema{}

	tablesResult, err := in.DB.ExecuteQuery(in.queries.tables, in.Schema)
	if err != nil {
		return nil, fmt.Errorf("loader: listing tables: %w", err)
	}

	for _, row := range tablesResult {
		name := stringValue(row["table_name"])
		columns, err := in.loadColumns(name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			in.Logger.Warningf("Skipping table %s: no columns found", name)
			continue
		}
		schema.Tables = append(schema.Tables, &models.Table{Name: name, Columns: columns})
	}

	if err := in.loadPrimaryKeys(schema); err != nil {
		return nil, err
	}
	if err := in.loadIndexes(schema); err != nil {
		return nil, err
	}
	if err := in.loadForeignKeys(schema); err != nil {
		return nil, err
	}

	in.detectCollectionTables(schema)

	in.Logger.Infof("Loaded %d tables and %d collection tables from %s",
		len(schema.Tables), len(schema.Collections), in.Schema)
	return schema, nil
}

func (in *Introspector) loadColumns(table string) ([]*models.Column, error) {
	columnsResult, err := in.DB.ExecuteQuery(in.queries.columns, in.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("loader: reading columns of %s: %w", table, err)
	}

	var columns []*models.Column
	for _, row := range columnsResult {
		columns = append(columns, &models.Column{
			Name:       stringValue(row["column_name"]),
			DataType:   stringValue(row["data_type"]),
			Length:     int64Value(row["character_maximum_length"]),
			Precision:  int64Value(row["numeric_precision"]),
			Scale:      int64Value(row["numeric_scale"]),
			IsNullable: stringValue(row["is_nullable"]) == "YES",
		})
	}
	return columns, nil
}

func (in *Introspector) loadPrimaryKeys(schema *models.Schema) error {
	pkResult, err := in.DB.ExecuteQuery(in.queries.primaryKeys, in.Schema)
	if err != nil {
		return fmt.Errorf("loader: reading primary keys: %w", err)
	}

	for _, row := range pkResult {
		table := schema.Table(stringValue(row["table_name"]))
		if table == nil {
			continue
		}
		column := table.Column(stringValue(row["column_name"]))
		if column == nil {
			continue
		}
		if table.PrimaryKey == nil {
			table.PrimaryKey = &models.PrimaryKey{Name: "PK_" + table.Name}
		}
		table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column)
	}
	return nil
}

func (in *Introspector) loadIndexes(schema *models.Schema) error {
	indexResult, err := in.DB.ExecuteQuery(in.queries.indexes, in.Schema)
	if err != nil {
		return fmt.Errorf("loader: reading indexes: %w", err)
	}

	for _, row := range indexResult {
		table := schema.Table(stringValue(row["table_name"]))
		if table == nil {
			continue
		}
		nonUnique := int64Value(row["non_unique"])
		index := &models.Index{
			Name:   stringValue(row["index_name"]),
			Unique: nonUnique != nil && *nonUnique == 0,
		}
		table.Indexes = append(table.Indexes, index)
		// A unique index enforces a UNIQUE constraint, which the exporter must see
		if index.Unique {
			table.UniqueKeys = append(table.UniqueKeys, &models.UniqueKey{Name: index.Name})
		}
	}
	return nil
}

func (in *Introspector) loadForeignKeys(schema *models.Schema) error {
	fkResult, err := in.DB.ExecuteQuery(in.queries.foreignKeys, in.Schema)
	if err != nil {
		return fmt.Errorf("loader: reading foreign keys: %w", err)
	}

	for _, row := range fkResult {
		table := schema.Table(stringValue(row["table_name"]))
		if table == nil {
			continue
		}
		columnName := stringValue(row["column_name"])

		isNullable := false
		if col := table.Column(columnName); col != nil {
			isNullable = col.IsNullable
		}

		table.ForeignKeys = append(table.ForeignKeys, models.ForeignKey{
			Name:             stringValue(row["constraint_name"]),
			Column:           columnName,
			ReferencedTable:  stringValue(row["referenced_table_name"]),
			ReferencedColumn: stringValue(row["referenced_column_name"]),
			IsNullable:       isNullable,
		})
	}
	return nil
}

// detectCollectionTables records a collection association for every table
// without a primary key whose foreign keys all reference one other table
func (in *Introspector) detectCollectionTables(schema *models.Schema) {
	for _, table := range schema.Tables {
		if table.HasPrimaryKey() || len(table.ForeignKeys) == 0 {
			continue
		}

		referencedTables := make(map[string]bool)
		for _, fk := range table.ForeignKeys {
			referencedTables[fk.ReferencedTable] = true
		}
		if len(referencedTables) != 1 {
			continue
		}

		owner := schema.Table(table.ForeignKeys[0].ReferencedTable)
		if owner == nil || owner == table {
			continue
		}

		in.Logger.Debugf("Detected collection table %s owned by %s", table.Name, owner.Name)
		schema.Collections = append(schema.Collections, models.CollectionAssociation{
			Role:            owner.Name + "." + table.Name,
			CollectionTable: table,
			OwnerTable:      owner,
		})
	}
}

func stringValue(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func int64Value(v interface{}) *int64 {
	if v == nil {
		return nil
	}
	val, err := strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
	if err != nil {
		return nil
	}
	return &val
}
