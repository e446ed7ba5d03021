package exporter

import (
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
)

// KeyStrategy identifies how a table's primary key columns are derived
type KeyStrategy int

const (
	// DeclaredKey uses the table's own primary key.
	DeclaredKey KeyStrategy = iota
	// CollectionKey uses every column of an element-collection table.
	CollectionKey
	// NoKey yields an empty key, as for the single-row sequence table.
	NoKey
)

func (s KeyStrategy) String() string {
	switch s {
	case DeclaredKey:
		return "Declared key"
	case CollectionKey:
		return "Collection"
	case NoKey:
		return "No key"
	default:
		return "Unknown"
	}
}

// KeyResolution is the outcome of primary key resolution for one table
type KeyResolution struct {
	Strategy KeyStrategy
	Columns  []*models.Column
	// Owner is the owning table of a collection table.
	Owner *models.Table
	// IgnoredOwners lists further owners when the collection table is shared.
	IgnoredOwners []*models.Table
}

// ResolveKeyColumns determines the ordered key columns of a table.
//
// A declared primary key is used as-is. A table without one that is the
// collection table of an association is keyed on all of its columns in
// natural order. Anything else gets an empty key. When several associations
// name the same collection table, the first in association order wins.
func (te *TableExporter) ResolveKeyColumns(table *models.Table, schema *models.Schema) KeyResolution {
	if table.HasPrimaryKey() {
		return KeyResolution{Strategy: DeclaredKey, Columns: table.PrimaryKey.Columns}
	}

	if owners := schema.CollectionOwners(table); len(owners) > 0 {
		res := KeyResolution{
			Strategy: CollectionKey,
			Columns:  table.Columns,
			Owner:    owners[0],
		}
		if len(owners) > 1 {
			res.IgnoredOwners = owners[1:]
			te.Logger.Warningf("Collection table %s is shared by %d owners, keying it for %s",
				table.Name, len(owners), owners[0].Name)
		}
		return res
	}

	return KeyResolution{Strategy: NoKey}
}
