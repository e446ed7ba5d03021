package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const authorYAML = `
tables:
  - name: Author
    columns:
      - {name: id, type: int64}
      - {name: name, type: varchar, length: 120, nullable: true}
    primary_key: [id]
    indexes:
      - {name: idx_author_name, columns: [name]}
  - name: Author_books
    columns:
      - {name: Author_id, type: int64}
      - {name: books_element, type: string, nullable: true}
    foreign_keys:
      - {name: fk_books_author, column: Author_id, references: Author, referenced_column: id}
  - name: hibernate_sequence
    columns:
      - {name: next_val, type: bigint, nullable: true}
collections:
  - {role: Author.books, table: Author_books, owner: Author}
`

func TestParseYAML(t *testing.T) {
	schema, err := ParseYAML([]byte(authorYAML))
	if err != nil {
		t.Fatalf("ParseYAML() unexpected error: %v", err)
	}

	if len(schema.Tables) != 3 {
		t.Fatalf("Expected 3 tables, got %d", len(schema.Tables))
	}

	author := schema.Table("Author")
	if author == nil || !author.HasPrimaryKey() {
		t.Fatal("Expected Author with a primary key")
	}
	if author.PrimaryKey.Columns[0] != author.Columns[0] {
		t.Error("Expected primary key columns to be the table's own column values")
	}
	if l := author.Columns[1].Length; l == nil || *l != 120 {
		t.Errorf("Expected name length 120, got %v", l)
	}
	if len(author.Indexes) != 1 || author.Indexes[0].Name != "idx_author_name" {
		t.Errorf("Unexpected indexes %v", author.Indexes)
	}

	books := schema.Table("Author_books")
	if books.HasPrimaryKey() {
		t.Error("Expected Author_books to have no primary key")
	}
	if owners := schema.CollectionOwners(books); len(owners) != 1 || owners[0] != author {
		t.Errorf("Expected Author_books to be owned by Author, got %v", owners)
	}
	if fk := books.ForeignKeys[0]; fk.ReferencedTable != "Author" || fk.IsNullable {
		t.Errorf("Unexpected foreign key %+v", fk)
	}
}

func TestParseYAMLInterleave(t *testing.T) {
	schema, err := ParseYAML([]byte(`
tables:
  - name: Singers
    columns: [{name: id, type: int64}]
    primary_key: [id]
  - name: Albums
    columns: [{name: id, type: int64}]
    primary_key: [id]
    interleave_in: Singers
`))
	if err != nil {
		t.Fatalf("ParseYAML() unexpected error: %v", err)
	}
	if schema.Table("Albums").InterleaveParent != schema.Table("Singers") {
		t.Error("Expected Albums to be interleaved in Singers")
	}
}

func TestParseYAMLErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		doc         string
		errContains string
	}{
		{name: "empty document", doc: "", errContains: "empty schema document"},
		{name: "unknown field", doc: "tables: [{name: t, colums: []}]", errContains: "colums"},
		{name: "no columns", doc: "tables: [{name: t}]", errContains: "has no columns"},
		{name: "missing type", doc: "tables: [{name: t, columns: [{name: a}]}]", errContains: "has no type"},
		{name: "duplicate table", doc: "tables: [{name: t, columns: [{name: a, type: int64}]}, {name: t, columns: [{name: a, type: int64}]}]", errContains: "duplicate table t"},
		{name: "empty index name", doc: "tables: [{name: t, columns: [{name: a, type: int64}], indexes: [{columns: [a]}]}]", errContains: "index with empty name in table t"},
		{name: "empty unique key name", doc: "tables: [{name: t, columns: [{name: a, type: int64}], unique_keys: [{columns: [a]}]}]", errContains: "unique key with empty name in table t"},
		{name: "unknown key column", doc: "tables: [{name: t, columns: [{name: a, type: int64}], primary_key: [b]}]", errContains: "has no column b"},
		{name: "unknown referenced table", doc: "tables: [{name: t, columns: [{name: a, type: int64}], foreign_keys: [{name: fk, column: a, references: u}]}]", errContains: "unknown table u"},
		{name: "unknown interleave parent", doc: "tables: [{name: t, columns: [{name: a, type: int64}], interleave_in: p}]", errContains: "interleaved in unknown table p"},
		{name: "unknown collection owner", doc: "tables: [{name: t, columns: [{name: a, type: int64}]}]\ncollections: [{role: r, table: t, owner: o}]", errContains: "unknown owner o"},
		{name: "unknown collection table", doc: "tables: [{name: t, columns: [{name: a, type: int64}]}]\ncollections: [{role: r, table: x, owner: t}]", errContains: "unknown table x"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseYAML([]byte(tt.doc))
			if err == nil {
				t.Fatalf("Expected an error containing %q", tt.errContains)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Expected error to contain %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	if err := os.WriteFile(path, []byte(authorYAML), 0o644); err != nil {
		t.Fatalf("Failed to write schema file: %v", err)
	}

	schema, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML() unexpected error: %v", err)
	}
	if len(schema.Tables) != 3 {
		t.Errorf("Expected 3 tables, got %d", len(schema.Tables))
	}

	if _, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestParseYAMLUniqueIndexIsUniqueKey(t *testing.T) {
	schema, err := ParseYAML([]byte(`
tables:
  - name: users
    columns:
      - {name: id, type: int64}
      - {name: email, type: string}
    primary_key: [id]
    indexes:
      - {name: idx_users_email, columns: [email], unique: true}
`))
	if err != nil {
		t.Fatalf("ParseYAML() unexpected error: %v", err)
	}

	users := schema.Table("users")
	if len(users.Indexes) != 1 || !users.Indexes[0].Unique {
		t.Fatalf("Expected one unique index, got %+v", users.Indexes)
	}
	if len(users.UniqueKeys) != 1 || users.UniqueKeys[0].Name != "idx_users_email" {
		t.Errorf("Expected the unique index to be recorded as a unique key, got %+v", users.UniqueKeys)
	}
}
