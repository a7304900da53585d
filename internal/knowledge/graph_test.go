package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthql/synthql/internal/schema"
	"github.com/synthql/synthql/internal/testutil"
)

func findEdge(t *testing.T, g *Graph, source, target string) Edge {
	t.Helper()

	for _, edge := range g.Edges {
		if edge.SourceTable == source && edge.TargetTable == target {
			return edge
		}
	}

	t.Fatalf("no edge %s -> %s in %+v", source, target, g.Edges)

	return Edge{}
}

func TestBuildGraphExplicitAndInferredEdges(t *testing.T) {
	graph := BuildGraph(testutil.SampleHRSchema())

	assert.Equal(t, []string{"hr.Employee", "hr.Project", "hr.Timesheet"}, graph.Nodes)
	require.Len(t, graph.Edges, 2)

	explicit := findEdge(t, graph, "hr.Timesheet", "hr.Employee")
	assert.Equal(t, RelForeignKey, explicit.Type)
	assert.InDelta(t, 0.9, explicit.Confidence, 1e-9)
	assert.Equal(t, "EmployeeID", explicit.Metadata.SourceColumn)
	assert.Equal(t, "EmployeeID", explicit.Metadata.TargetColumn)

	inferred := findEdge(t, graph, "hr.Timesheet", "hr.Project")
	assert.Equal(t, RelInferredForeignKey, inferred.Type)
	assert.InDelta(t, 0.6, inferred.Confidence, 1e-9)
	assert.Equal(t, "ProjectID", inferred.Metadata.SourceColumn)
	assert.Equal(t, "ProjectID", inferred.Metadata.TargetColumn)
	assert.Greater(t, inferred.Metadata.Strength, 0.7)
}

func TestBuildGraphDeclaredColumnNotReinferred(t *testing.T) {
	graph := BuildGraph(testutil.SampleHRSchema())

	count := 0

	for _, edge := range graph.Edges {
		if edge.SourceTable == "hr.Timesheet" && edge.TargetTable == "hr.Employee" {
			count++
		}
	}

	assert.Equal(t, 1, count, "declared FK must not produce a duplicate inferred edge")
}

func TestBuildGraphDomains(t *testing.T) {
	graph := BuildGraph(testutil.SampleHRSchema())

	assert.Equal(t, "human_resources", graph.Domains["hr.Employee"])
	assert.Equal(t, "project_management", graph.Domains["hr.Project"])
}

func TestInferRelatedTables(t *testing.T) {
	tests := []struct {
		name   string
		column string
		tables []string
		want   []TableScore
	}{
		{
			name:   "underscore fk matches table",
			column: "project_id",
			tables: []string{"Project", "Employee"},
			want:   []TableScore{{Table: "Project", Score: 0.8}},
		},
		{
			name:   "camel case fk matches table",
			column: "ProjectID",
			tables: []string{"Project", "Employee"},
			want:   []TableScore{{Table: "Project", Score: 0.8}},
		},
		{
			name:   "stem contained in plural table name",
			column: "order_id",
			tables: []string{"Orders"},
			want:   []TableScore{{Table: "Orders", Score: 0.8}},
		},
		{
			name:   "bare id is not fk-shaped",
			column: "id",
			tables: []string{"Project"},
			want:   nil,
		},
		{
			name:   "non-id column yields nothing",
			column: "Salary",
			tables: []string{"Project"},
			want:   nil,
		},
		{
			name:   "weak match stays below threshold",
			column: "xyz_id",
			tables: []string{"Project"},
			want:   nil,
		},
		{
			name:   "no candidates",
			column: "project_id",
			tables: nil,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferRelatedTables(tt.column, tt.tables)
			require.Len(t, got, len(tt.want))

			for i := range tt.want {
				assert.Equal(t, tt.want[i].Table, got[i].Table)
				assert.InDelta(t, tt.want[i].Score, got[i].Score, 1e-9)
			}
		})
	}
}

func TestForeignKeyStem(t *testing.T) {
	tests := []struct {
		column string
		stem   string
		ok     bool
	}{
		{"employee_id", "employee", true},
		{"EmployeeID", "employee", true},
		{"ID", "", false},
		{"id", "", false},
		{"name", "", false},
	}

	for _, tt := range tests {
		stem, ok := foreignKeyStem(tt.column)
		assert.Equal(t, tt.ok, ok, tt.column)
		assert.Equal(t, tt.stem, stem, tt.column)
	}
}

func TestCharSetJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, charSetJaccard("abc", "cab"), 1e-9)
	assert.InDelta(t, 0.0, charSetJaccard("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.0, charSetJaccard("", ""), 1e-9)
	assert.InDelta(t, 1.0/3.0, charSetJaccard("ab", "bc"), 1e-9)
}

func TestClassifyDomain(t *testing.T) {
	tests := []struct {
		table  schema.TableDescriptor
		domain string
	}{
		{
			table:  schema.TableDescriptor{Name: "Employee", Columns: []schema.ColumnDescriptor{{Name: "Salary"}}},
			domain: "human_resources",
		},
		{
			table:  schema.TableDescriptor{Name: "Invoice", Columns: []schema.ColumnDescriptor{{Name: "Amount"}}},
			domain: "financial",
		},
		{
			table:  schema.TableDescriptor{Name: "Widget", Columns: []schema.ColumnDescriptor{{Name: "Color"}}},
			domain: "general",
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.domain, classifyDomain(tt.table), tt.table.Name)
	}
}

func TestSubsetClosureAndDeterminism(t *testing.T) {
	graph := BuildGraph(testutil.SampleHRSchema())

	first := graph.Subset([]string{"hr.Timesheet"})
	second := graph.Subset([]string{"hr.Timesheet"})

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"hr.Employee", "hr.Project", "hr.Timesheet"}, first.Nodes)
	assert.Len(t, first.Edges, 2)
}

func TestSubsetUnknownTable(t *testing.T) {
	graph := BuildGraph(testutil.SampleHRSchema())

	sub := graph.Subset([]string{"hr.Nope"})
	assert.Empty(t, sub.Edges)
	assert.Equal(t, []string{"hr.Nope"}, sub.Nodes)
}

func TestEdgeBetweenPrefersStrongest(t *testing.T) {
	graph := &Graph{
		Edges: []Edge{
			{SourceTable: "a", TargetTable: "b", Type: RelInferredForeignKey, Confidence: 0.6},
			{SourceTable: "b", TargetTable: "a", Type: RelForeignKey, Confidence: 0.9},
		},
	}

	edge, ok := graph.EdgeBetween("a", "b")
	require.True(t, ok)
	assert.InDelta(t, 0.9, edge.Confidence, 1e-9)

	// Direction does not matter
	reversed, ok := graph.EdgeBetween("b", "a")
	require.True(t, ok)
	assert.Equal(t, edge, reversed)

	_, ok = graph.EdgeBetween("a", "c")
	assert.False(t, ok)
}

func TestBuildGraphIgnoresUnnamedTables(t *testing.T) {
	tables := testutil.SampleHRSchema()
	tables[1].Name = ""

	graph := BuildGraph(tables)

	assert.NotContains(t, graph.Nodes, "hr.")

	for _, edge := range graph.Edges {
		assert.NotEqual(t, "hr.", edge.SourceTable)
		assert.NotEqual(t, "hr.", edge.TargetTable)
	}
}
