package models

// Column represents a table column with its properties
type Column struct {
	Name       string
	Quoted     bool
	DataType   string
	SQLType    string
	Length     *int64
	Precision  *int64
	Scale      *int64
	IsNullable bool
}

// QuotedName returns the column name, wrapped in backticks when the column is quoted
func (c *Column) QuotedName() string {
	return quote(c.Name, c.Quoted)
}

// PrimaryKey represents a primary key; column order is the key order
type PrimaryKey struct {
	Name    string
	Columns []*Column
}

// Index represents a secondary index defined on a table
type Index struct {
	Name    string
	Columns []*Column
	Unique  bool
}

// UniqueKey represents a UNIQUE constraint declared on a table
type UniqueKey struct {
	Name    string
	Columns []*Column
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Name             string
	Column           string
	ReferencedTable  string
	ReferencedColumn string
	IsNullable       bool
}

// Table represents a table in the schema model
type Table struct {
	Name             string
	Quoted           bool
	Columns          []*Column
	PrimaryKey       *PrimaryKey
	Indexes          []*Index
	UniqueKeys       []*UniqueKey
	ForeignKeys      []ForeignKey
	InterleaveParent *Table
}

// QuotedName returns the table name, wrapped in backticks when the table is quoted
func (t *Table) QuotedName() string {
	return quote(t.Name, t.Quoted)
}

// HasPrimaryKey reports whether the table declares its own primary key
func (t *Table) HasPrimaryKey() bool {
	return t.PrimaryKey != nil
}

// Column returns the column with the given name, or nil
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// CollectionAssociation maps a collection table to the table that owns it
type CollectionAssociation struct {
	Role            string
	CollectionTable *Table
	OwnerTable      *Table
}

// Schema is the complete model for one generation run. It is not modified
// by the exporters.
type Schema struct {
	Tables      []*Table
	Collections []CollectionAssociation
}

// Table returns the table with the given name, or nil
func (s *Schema) Table(name string) *Table {
	for _, t := range s.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// CollectionOwners returns the owners of every association whose collection
// table is t, in association order. Tables are matched by identity.
func (s *Schema) CollectionOwners(t *Table) []*Table {
	var owners []*Table
	for _, assoc := range s.Collections {
		if assoc.CollectionTable == t {
			owners = append(owners, assoc.OwnerTable)
		}
	}
	return owners
}

func quote(name string, quoted bool) string {
	if quoted {
		return "`" + name + "`"
	}
	return name
}
