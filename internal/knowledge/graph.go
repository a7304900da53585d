package knowledge

import (
	"sort"
	"strings"

	"github.com/synthql/synthql/internal/schema"
)

// RelationshipType distinguishes declared foreign keys from name-inferred ones
type RelationshipType string

const (
	RelForeignKey         RelationshipType = "foreign_key"
	RelInferredForeignKey RelationshipType = "inferred_foreign_key"
)

const (
	explicitEdgeConfidence = 0.9
	inferredEdgeConfidence = 0.6

	// containmentScore is the match strength when a stripped fk-column name
	// is a substring of a table name (or vice versa)
	containmentScore = 0.8

	// inferenceThreshold is the minimum name-match strength for an inferred edge
	inferenceThreshold = 0.7
)

// EdgeMetadata carries the joining columns and the raw name-match strength
type EdgeMetadata struct {
	SourceColumn string  `json:"source_column"`
	TargetColumn string  `json:"target_column"`
	Strength     float64 `json:"strength"`
}

// Edge is one directed join relationship between two tables
type Edge struct {
	SourceTable string           `json:"source_table"`
	TargetTable string           `json:"target_table"`
	Type        RelationshipType `json:"relationship_type"`
	Confidence  float64          `json:"confidence"`
	Metadata    EdgeMetadata     `json:"metadata"`
}

// Graph is the relationship graph over fully-qualified table names. Domains
// maps each node to its inferred business domain; it is advisory context, not
// a constraint.
type Graph struct {
	Nodes   []string          `json:"nodes"`
	Edges   []Edge            `json:"edges"`
	Domains map[string]string `json:"domains,omitempty"`
}

// TableScore is one ranked candidate from foreign-key name inference
type TableScore struct {
	Table string
	Score float64
}

// BuildGraph derives the relationship graph for a set of tables: declared
// foreign keys become high-confidence edges, then fk-looking column names are
// matched against the other table names for inferred edges. The graph is
// rebuilt wholesale on every ingestion.
func BuildGraph(tables []schema.TableDescriptor) *Graph {
	graph := &Graph{
		Domains: make(map[string]string, len(tables)),
	}

	byQualified := make(map[string]schema.TableDescriptor, len(tables))
	byBareName := make(map[string]string, len(tables))

	for _, table := range tables {
		if table.Name == "" {
			continue
		}

		qualified := table.QualifiedName()
		graph.Nodes = append(graph.Nodes, qualified)
		graph.Domains[qualified] = classifyDomain(table)
		byQualified[qualified] = table
		byBareName[strings.ToLower(table.Name)] = qualified
	}

	sort.Strings(graph.Nodes)

	for _, table := range tables {
		if table.Name == "" {
			continue
		}

		source := table.QualifiedName()

		// Declared foreign keys first
		declared := make(map[string]bool, len(table.Relationships))

		for _, rel := range table.Relationships {
			target := resolveTableName(rel.TargetTable, byBareName)
			if target == "" {
				continue
			}

			declared[strings.ToLower(rel.SourceColumn)] = true

			graph.Edges = append(graph.Edges, Edge{
				SourceTable: source,
				TargetTable: target,
				Type:        RelForeignKey,
				Confidence:  explicitEdgeConfidence,
				Metadata: EdgeMetadata{
					SourceColumn: rel.SourceColumn,
					TargetColumn: rel.TargetColumn,
					Strength:     1.0,
				},
			})
		}

		// Then infer edges from fk-looking column names that have no
		// declared relationship
		candidates := candidateTableNames(tables, source)

		for _, col := range table.Columns {
			if declared[strings.ToLower(col.Name)] {
				continue
			}

			scores := InferRelatedTables(col.Name, candidates)
			if len(scores) == 0 {
				continue
			}

			best := scores[0]
			target := byBareName[strings.ToLower(best.Table)]

			if target == "" || target == source {
				continue
			}

			graph.Edges = append(graph.Edges, Edge{
				SourceTable: source,
				TargetTable: target,
				Type:        RelInferredForeignKey,
				Confidence:  inferredEdgeConfidence,
				Metadata: EdgeMetadata{
					SourceColumn: col.Name,
					TargetColumn: primaryKeyColumn(byQualified[target]),
					Strength:     best.Score,
				},
			})
		}
	}

	sortEdges(graph.Edges)

	return graph
}

// InferRelatedTables matches a foreign-key-looking column name against known
// table names and returns candidates above the inference threshold, strongest
// first. Columns that are not fk-shaped (no id suffix, or literally "id")
// yield nothing. Pure function; the graph builder is its only production
// caller but it is independently testable.
func InferRelatedTables(column string, tableNames []string) []TableScore {
	stem, ok := foreignKeyStem(column)
	if !ok {
		return nil
	}

	var scores []TableScore

	for _, name := range tableNames {
		tableLower := strings.ToLower(name)

		var score float64

		if strings.Contains(tableLower, stem) || strings.Contains(stem, tableLower) {
			score = containmentScore
		} else {
			score = charSetJaccard(stem, tableLower)
		}

		if score > inferenceThreshold {
			scores = append(scores, TableScore{Table: name, Score: score})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}

		return scores[i].Table < scores[j].Table
	})

	return scores
}

// foreignKeyStem strips the id suffix from a column name. Returns false for
// names that are not fk-shaped, including a bare "id".
func foreignKeyStem(column string) (string, bool) {
	lower := strings.ToLower(column)

	if lower == "id" {
		return "", false
	}

	switch {
	case strings.HasSuffix(lower, "_id"):
		return strings.TrimSuffix(lower, "_id"), true
	case strings.HasSuffix(lower, "id"):
		return strings.TrimSuffix(lower, "id"), true
	default:
		return "", false
	}
}

// charSetJaccard computes Jaccard similarity over the character sets of two names
func charSetJaccard(a, b string) float64 {
	setA := make(map[rune]bool)
	for _, r := range a {
		setA[r] = true
	}

	setB := make(map[rune]bool)
	for _, r := range b {
		setB[r] = true
	}

	intersection := 0

	for r := range setA {
		if setB[r] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// Subset returns the part of the graph touching any of the given tables: every
// edge with an endpoint in the input set, plus the closure of nodes those
// edges connect. The result is deterministically ordered, so repeated calls
// with the same input are structurally identical.
func (g *Graph) Subset(tables []string) *Graph {
	wanted := make(map[string]bool, len(tables))
	for _, t := range tables {
		wanted[t] = true
	}

	nodes := make(map[string]bool, len(tables))
	for _, t := range tables {
		nodes[t] = true
	}

	sub := &Graph{Domains: make(map[string]string)}

	for _, edge := range g.Edges {
		if wanted[edge.SourceTable] || wanted[edge.TargetTable] {
			sub.Edges = append(sub.Edges, edge)
			nodes[edge.SourceTable] = true
			nodes[edge.TargetTable] = true
		}
	}

	for node := range nodes {
		sub.Nodes = append(sub.Nodes, node)

		if domain, ok := g.Domains[node]; ok {
			sub.Domains[node] = domain
		}
	}

	sort.Strings(sub.Nodes)
	sortEdges(sub.Edges)

	return sub
}

// EdgeBetween returns the strongest edge connecting the two tables in either
// direction, if any exists.
func (g *Graph) EdgeBetween(a, b string) (Edge, bool) {
	var best Edge

	found := false

	for _, edge := range g.Edges {
		if (edge.SourceTable == a && edge.TargetTable == b) ||
			(edge.SourceTable == b && edge.TargetTable == a) {
			if !found || edge.Confidence > best.Confidence {
				best = edge
				found = true
			}
		}
	}

	return best, found
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceTable != edges[j].SourceTable {
			return edges[i].SourceTable < edges[j].SourceTable
		}

		if edges[i].TargetTable != edges[j].TargetTable {
			return edges[i].TargetTable < edges[j].TargetTable
		}

		return edges[i].Metadata.SourceColumn < edges[j].Metadata.SourceColumn
	})
}

// resolveTableName maps a possibly-unqualified target table reference to a
// known qualified name
func resolveTableName(name string, byBareName map[string]string) string {
	if qualified, ok := byBareName[strings.ToLower(name)]; ok {
		return qualified
	}

	// Already qualified, or unknown
	if strings.Contains(name, ".") {
		parts := strings.SplitN(name, ".", 2)
		if qualified, ok := byBareName[strings.ToLower(parts[1])]; ok {
			return qualified
		}
	}

	return ""
}

// candidateTableNames lists bare table names excluding the source table itself
func candidateTableNames(tables []schema.TableDescriptor, source string) []string {
	names := make([]string, 0, len(tables)-1)

	for _, t := range tables {
		if t.Name == "" || t.QualifiedName() == source {
			continue
		}

		names = append(names, t.Name)
	}

	return names
}

// primaryKeyColumn returns the table's primary key column, defaulting to "id"
func primaryKeyColumn(table schema.TableDescriptor) string {
	if len(table.PrimaryKeys) > 0 {
		return table.PrimaryKeys[0]
	}

	for _, col := range table.Columns {
		if col.PrimaryKey {
			return col.Name
		}
	}

	return "id"
}

// Domain lexicons for the coarse business-domain tag attached to graph nodes
var domainLexicons = []struct {
	domain   string
	keywords []string
}{
	{"human_resources", []string{"employee", "staff", "person", "salary", "payroll", "department", "hire", "position"}},
	{"project_management", []string{"project", "task", "milestone", "assignment", "deliverable", "sprint"}},
	{"time_tracking", []string{"timesheet", "hours", "clock", "attendance", "billable", "shift"}},
	{"financial", []string{"invoice", "payment", "budget", "cost", "expense", "revenue", "billing", "price"}},
	{"client_management", []string{"client", "customer", "account", "contact", "vendor", "lead"}},
}

// classifyDomain assigns a coarse business domain by keyword match against the
// table name, its description, and its column names. First lexicon with a hit
// wins; anything unmatched is "general".
func classifyDomain(table schema.TableDescriptor) string {
	var sb strings.Builder

	sb.WriteString(strings.ToLower(table.Name))
	sb.WriteString(" ")
	sb.WriteString(strings.ToLower(table.Description))

	for _, col := range table.Columns {
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(col.Name))
	}

	haystack := sb.String()

	for _, lexicon := range domainLexicons {
		for _, keyword := range lexicon.keywords {
			if strings.Contains(haystack, keyword) {
				return lexicon.domain
			}
		}
	}

	return "general"
}
