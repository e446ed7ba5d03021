package analyzer

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/spanner-ddl-exporter/pkg/models"
	"github.com/yourbasic/graph"
)

// SchemaAnalyzer analyzes a schema model, detects table dependencies and
// orders tables for creation and removal
type SchemaAnalyzer struct {
	Schema          *models.Schema
	Tables          []string
	DependencyGraph *graph.Mutable
	TableIndexMap   map[string]int
	IndexTableMap   map[int]string
	// Dependencies maps a table to the tables it must be created after.
	Dependencies     map[string][]string
	CollectionTables map[string]string
	CircularTables   map[string]bool
	Logger           *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(schema *models.Schema, logger *logrus.Logger) *SchemaAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SchemaAnalyzer{
		Schema:           schema,
		TableIndexMap:    make(map[string]int),
		IndexTableMap:    make(map[int]string),
		Dependencies:     make(map[string][]string),
		CollectionTables: make(map[string]string),
		CircularTables:   make(map[string]bool),
		Logger:           logger,
	}
}

// AnalyzeSchema builds the dependency graph. A table depends on the tables
// its foreign keys reference, on the owner of its collection association and
// on its interleave parent.
func (sa *SchemaAnalyzer) AnalyzeSchema() {
	sa.Tables = sa.Tables[:0]
	for i, table := range sa.Schema.Tables {
		sa.Tables = append(sa.Tables, table.Name)
		sa.TableIndexMap[table.Name] = i
		sa.IndexTableMap[i] = table.Name
	}

	sa.DependencyGraph = graph.New(len(sa.Tables))

	for _, table := range sa.Schema.Tables {
		for _, fk := range table.ForeignKeys {
			sa.addDependency(table.Name, fk.ReferencedTable)
		}
		if table.InterleaveParent != nil {
			sa.addDependency(table.Name, table.InterleaveParent.Name)
		}
	}

	for _, assoc := range sa.Schema.Collections {
		if assoc.CollectionTable == nil || assoc.OwnerTable == nil {
			continue
		}
		if _, seen := sa.CollectionTables[assoc.CollectionTable.Name]; !seen {
			sa.CollectionTables[assoc.CollectionTable.Name] = assoc.OwnerTable.Name
		}
		sa.addDependency(assoc.CollectionTable.Name, assoc.OwnerTable.Name)
	}

	sa.detectCircularTables()

	sa.Logger.Debugf("Analyzed %d tables, %d collection tables, %d in circular dependencies",
		len(sa.Tables), len(sa.CollectionTables), len(sa.CircularTables))
}

// addDependency records that table must be created after parent. The graph
// edge points from parent to dependent so a topological order lists parents first.
func (sa *SchemaAnalyzer) addDependency(table, parent string) {
	// Self-references do not constrain ordering
	if table == parent {
		return
	}

	srcIdx, ok := sa.TableIndexMap[parent]
	if !ok {
		sa.Logger.Warningf("Table %s references unknown table %s", table, parent)
		return
	}
	destIdx := sa.TableIndexMap[table]

	if sa.DependencyGraph.Edge(srcIdx, destIdx) {
		return
	}
	sa.DependencyGraph.Add(srcIdx, destIdx)
	sa.Dependencies[table] = append(sa.Dependencies[table], parent)
}

// detectCircularTables marks every table that belongs to a dependency cycle
func (sa *SchemaAnalyzer) detectCircularTables() {
	for _, component := range graph.StrongComponents(sa.DependencyGraph) {
		if len(component) < 2 {
			continue
		}
		for _, idx := range component {
			sa.CircularTables[sa.IndexTableMap[idx]] = true
		}
	}
}

// GetCreationOrder returns table names ordered so that every table follows
// the tables it depends on. Among tables that are ready at the same time the
// one declared first wins. Tables in circular dependencies cannot be ordered
// and are appended by name.
func (sa *SchemaAnalyzer) GetCreationOrder() []string {
	n := sa.DependencyGraph.Order()

	indegree := make([]int, n)
	for v := 0; v < n; v++ {
		if sa.isCircular(v) {
			continue
		}
		sa.DependencyGraph.Visit(v, func(w int, _ int64) bool {
			if !sa.isCircular(w) {
				indegree[w]++
			}
			return false
		})
	}

	placed := make([]bool, n)
	orderedTables := make([]string, 0, n)
	for {
		next := -1
		for v := 0; v < n; v++ {
			if !placed[v] && !sa.isCircular(v) && indegree[v] == 0 {
				next = v
				break
			}
		}
		if next < 0 {
			break
		}

		placed[next] = true
		orderedTables = append(orderedTables, sa.IndexTableMap[next])
		sa.DependencyGraph.Visit(next, func(w int, _ int64) bool {
			if !sa.isCircular(w) {
				indegree[w]--
			}
			return false
		})
	}

	var circularTablesList []string
	for table := range sa.CircularTables {
		circularTablesList = append(circularTablesList, table)
	}
	sort.Strings(circularTablesList)

	return append(orderedTables, circularTablesList...)
}

// GetDropOrder returns the creation order reversed, dependents first
func (sa *SchemaAnalyzer) GetDropOrder() []string {
	order := sa.GetCreationOrder()
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func (sa *SchemaAnalyzer) isCircular(idx int) bool {
	return sa.CircularTables[sa.IndexTableMap[idx]]
}
