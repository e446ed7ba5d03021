package exporter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jaswdr/faker"
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

var fakeTypes = []string{"int64", "string", "bool", "float64", "date", "timestamp", "bytes", "numeric", "json"}

// randomSchema builds a schema mixing entity tables, collection tables and key-less tables
func randomSchema(f faker.Faker, tables int) *models.Schema {
	schema := &models.Schema{}

	for i := 0; i < tables; i++ {
		table := &models.Table{
			Name:   fmt.Sprintf("%s_%d", f.Lorem().Word(), i),
			Quoted: f.Bool(),
		}
		for j := 0; j < f.IntBetween(1, 6); j++ {
			table.Columns = append(table.Columns, &models.Column{
				Name:       fmt.Sprintf("%s_%d", f.Lorem().Word(), j),
				Quoted:     f.Bool(),
				DataType:   f.RandomStringElement(fakeTypes),
				IsNullable: f.Bool(),
			})
		}
		for j := 0; j < f.IntBetween(0, 3); j++ {
			table.Indexes = append(table.Indexes, &models.Index{Name: fmt.Sprintf("idx_%d_%d", i, j)})
		}

		switch f.IntBetween(0, 2) {
		case 0:
			// Key on a shuffled subset of the columns
			key := &models.PrimaryKey{}
			for _, c := range table.Columns {
				if f.Bool() || len(key.Columns) == 0 {
					key.Columns = append([]*models.Column{c}, key.Columns...)
				}
			}
			table.PrimaryKey = key
		case 1:
			if len(schema.Tables) > 0 {
				owner := schema.Tables[f.IntBetween(0, len(schema.Tables)-1)]
				schema.Collections = append(schema.Collections, models.CollectionAssociation{
					CollectionTable: table,
					OwnerTable:      owner,
				})
			}
		}

		schema.Tables = append(schema.Tables, table)
	}

	return schema
}

func quotedNames(columns []*models.Column) string {
	names := make([]string, 0, len(columns))
	for _, c := range columns {
		names = append(names, c.QuotedName())
	}
	return strings.Join(names, ",")
}

func TestKeyClauseProperties(t *testing.T) {
	f := faker.New()
	exp := newTestExporter()

	for run := 0; run < 20; run++ {
		schema := randomSchema(f, 12)

		for _, table := range schema.Tables {
			got, err := exp.GenerateCreateStatements(table, schema)
			if err != nil {
				t.Fatalf("GenerateCreateStatements(%s) unexpected error: %v", table.Name, err)
			}
			clause := keyClause(t, got[0])

			var want string
			switch {
			case table.HasPrimaryKey():
				want = quotedNames(table.PrimaryKey.Columns)
			case len(schema.CollectionOwners(table)) > 0:
				want = quotedNames(table.Columns)
			default:
				want = ""
			}
			if clause != want {
				t.Errorf("Table %s: key clause %q, want %q", table.Name, clause, want)
			}
		}
	}
}

func TestGenerationIsIdempotent(t *testing.T) {
	f := faker.New()
	exp := newTestExporter()
	schema := randomSchema(f, 25)

	for _, table := range schema.Tables {
		first, err := exp.GenerateCreateStatements(table, schema)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		second, err := exp.GenerateCreateStatements(table, schema)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if strings.Join(first, "\n") != strings.Join(second, "\n") {
			t.Errorf("Table %s: create output differs between calls", table.Name)
		}

		dropFirst := exp.GenerateDropStatements(table, schema)
		dropSecond := exp.GenerateDropStatements(table, schema)
		if strings.Join(dropFirst, "\n") != strings.Join(dropSecond, "\n") {
			t.Errorf("Table %s: drop output differs between calls", table.Name)
		}
	}
}

func TestDropReferencesCreatedObjects(t *testing.T) {
	f := faker.New()
	exp := newTestExporter()
	schema := randomSchema(f, 25)

	for _, table := range schema.Tables {
		create, err := exp.GenerateCreateStatements(table, schema)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		drop := exp.GenerateDropStatements(table, schema)

		// The only object the create statements introduce is the table itself
		if !strings.HasPrefix(create[0], "CREATE TABLE "+table.QuotedName()+" (") {
			t.Errorf("Unexpected create statement for %s: %s", table.Name, create[0])
		}
		if last := drop[len(drop)-1]; last != "DROP TABLE "+table.QuotedName() {
			t.Errorf("Expected the table drop last, got %q", last)
		}
		for i, idx := range table.Indexes {
			if drop[i] != "DROP INDEX "+idx.Name {
				t.Errorf("Expected %q at position %d, got %q", "DROP INDEX "+idx.Name, i, drop[i])
			}
		}
		if len(drop) != len(table.Indexes)+1 {
			t.Errorf("Expected %d drop statements, got %d", len(table.Indexes)+1, len(drop))
		}
	}
}
