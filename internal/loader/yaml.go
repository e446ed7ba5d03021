// Package loader builds a resolved schema model from a YAML file or from a
// live database's information_schema.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
	"gopkg.in/yaml.v3"
)

type schemaFile struct {
	Tables      []tableSpec      `yaml:"tables"`
	Collections []collectionSpec `yaml:"collections"`
}

type tableSpec struct {
	Name        string           `yaml:"name"`
	Quoted      bool             `yaml:"quoted"`
	Columns     []columnSpec     `yaml:"columns"`
	PrimaryKey  []string         `yaml:"primary_key"`
	Indexes     []indexSpec      `yaml:"indexes"`
	UniqueKeys  []indexSpec      `yaml:"unique_keys"`
	ForeignKeys []foreignKeySpec `yaml:"foreign_keys"`
	Interleave  string           `yaml:"interleave_in"`
}

type columnSpec struct {
	Name      string `yaml:"name"`
	Quoted    bool   `yaml:"quoted"`
	Type      string `yaml:"type"`
	SQLType   string `yaml:"sql_type"`
	Length    *int64 `yaml:"length"`
	Precision *int64 `yaml:"precision"`
	Scale     *int64 `yaml:"scale"`
	Nullable  bool   `yaml:"nullable"`
}

type indexSpec struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

type foreignKeySpec struct {
	Name             string `yaml:"name"`
	Column           string `yaml:"column"`
	ReferencedTable  string `yaml:"references"`
	ReferencedColumn string `yaml:"referenced_column"`
}

type collectionSpec struct {
	Role  string `yaml:"role"`
	Table string `yaml:"table"`
	Owner string `yaml:"owner"`
}

// LoadYAML reads a schema model file
func LoadYAML(path string) (*models.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a schema model and resolves every name reference.
// Unknown fields and references to missing tables or columns are errors.
func ParseYAML(data []byte) (*models.Schema, error) {
	var file schemaFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("loader: empty schema document")
		}
		return nil, fmt.Errorf("loader: decoding schema: %w", err)
	}

	schema := &models.Schema{}

	for _, ts := range file.Tables {
		if ts.Name == "" {
			return nil, fmt.Errorf("loader: table with empty name")
		}
		if schema.Table(ts.Name) != nil {
			return nil, fmt.Errorf("loader: duplicate table %s", ts.Name)
		}
		if len(ts.Columns) == 0 {
			return nil, fmt.Errorf("loader: table %s has no columns", ts.Name)
		}

		table := &models.Table{Name: ts.Name, Quoted: ts.Quoted}
		for _, cs := range ts.Columns {
			if cs.Name == "" {
				return nil, fmt.Errorf("loader: column with empty name in table %s", ts.Name)
			}
			if cs.Type == "" && cs.SQLType == "" {
				return nil, fmt.Errorf("loader: column %s.%s has no type", ts.Name, cs.Name)
			}
			table.Columns = append(table.Columns, &models.Column{
				Name:       cs.Name,
				Quoted:     cs.Quoted,
				DataType:   cs.Type,
				SQLType:    cs.SQLType,
				Length:     cs.Length,
				Precision:  cs.Precision,
				Scale:      cs.Scale,
				IsNullable: cs.Nullable,
			})
		}

		if len(ts.PrimaryKey) > 0 {
			cols, err := resolveColumns(table, ts.PrimaryKey)
			if err != nil {
				return nil, err
			}
			table.PrimaryKey = &models.PrimaryKey{Name: "PK_" + ts.Name, Columns: cols}
		}

		for _, is := range ts.Indexes {
			if is.Name == "" {
				return nil, fmt.Errorf("loader: index with empty name in table %s", ts.Name)
			}
			cols, err := resolveColumns(table, is.Columns)
			if err != nil {
				return nil, err
			}
			table.Indexes = append(table.Indexes, &models.Index{Name: is.Name, Columns: cols, Unique: is.Unique})
			if is.Unique {
				table.UniqueKeys = append(table.UniqueKeys, &models.UniqueKey{Name: is.Name, Columns: cols})
			}
		}

		for _, us := range ts.UniqueKeys {
			if us.Name == "" {
				return nil, fmt.Errorf("loader: unique key with empty name in table %s", ts.Name)
			}
			cols, err := resolveColumns(table, us.Columns)
			if err != nil {
				return nil, err
			}
			table.UniqueKeys = append(table.UniqueKeys, &models.UniqueKey{Name: us.Name, Columns: cols})
		}

		for _, fs := range ts.ForeignKeys {
			col := table.Column(fs.Column)
			if col == nil {
				return nil, fmt.Errorf("loader: foreign key %s references unknown column %s.%s", fs.Name, ts.Name, fs.Column)
			}
			table.ForeignKeys = append(table.ForeignKeys, models.ForeignKey{
				Name:             fs.Name,
				Column:           fs.Column,
				ReferencedTable:  fs.ReferencedTable,
				ReferencedColumn: fs.ReferencedColumn,
				IsNullable:       col.IsNullable,
			})
		}

		schema.Tables = append(schema.Tables, table)
	}

	// Second pass: references between tables
	for i, ts := range file.Tables {
		table := schema.Tables[i]
		for _, fk := range table.ForeignKeys {
			if schema.Table(fk.ReferencedTable) == nil {
				return nil, fmt.Errorf("loader: table %s references unknown table %s", table.Name, fk.ReferencedTable)
			}
		}
		if ts.Interleave != "" {
			parent := schema.Table(ts.Interleave)
			if parent == nil {
				return nil, fmt.Errorf("loader: table %s is interleaved in unknown table %s", table.Name, ts.Interleave)
			}
			table.InterleaveParent = parent
		}
	}

	for _, cs := range file.Collections {
		collection := schema.Table(cs.Table)
		if collection == nil {
			return nil, fmt.Errorf("loader: collection %s names unknown table %s", cs.Role, cs.Table)
		}
		owner := schema.Table(cs.Owner)
		if owner == nil {
			return nil, fmt.Errorf("loader: collection %s names unknown owner %s", cs.Role, cs.Owner)
		}
		schema.Collections = append(schema.Collections, models.CollectionAssociation{
			Role:            cs.Role,
			CollectionTable: collection,
			OwnerTable:      owner,
		})
	}

	return schema, nil
}

func resolveColumns(table *models.Table, names []string) ([]*models.Column, error) {
	cols := make([]*models.Column, 0, len(names))
	for _, name := range names {
		col := table.Column(name)
		if col == nil {
			return nil, fmt.Errorf("loader: table %s has no column %s", table.Name, name)
		}
		cols = append(cols, col)
	}
	return cols, nil
}
