package synthesis

import (
	"fmt"
	"strings"

	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/schema"
)

// domainJoinPattern is one known join shape between two table families that
// the relationship graph may not cover.
type domainJoinPattern struct {
	leftNoun    string
	rightNoun   string
	leftColumn  string
	rightColumn string
}

// domainJoinPatterns are common business joins tried when the graph has no
// edge between the chosen tables.
var domainJoinPatterns = []domainJoinPattern{
	{"employee", "project", "id", "employee_id"},
	{"employee", "timesheet", "id", "employee_id"},
	{"project", "timesheet", "id", "project_id"},
	{"customer", "order", "id", "customer_id"},
	{"user", "order", "id", "user_id"},
}

const (
	domainJoinConfidence  = 0.5
	genericJoinConfidence = 0.4
)

// joinCondition renders the ON condition for a graph edge
func joinCondition(edge knowledge.Edge) (string, float64, bool) {
	if edge.Metadata.SourceColumn == "" || edge.Metadata.TargetColumn == "" {
		return "", 0, false
	}

	condition := fmt.Sprintf("%s.%s = %s.%s",
		edge.SourceTable, edge.Metadata.SourceColumn,
		edge.TargetTable, edge.Metadata.TargetColumn)

	return condition, edge.Confidence, true
}

// resolveJoin decides how two tables connect: a graph edge when one exists,
// else a known domain pattern, else the generic id / <singular-table>_id
// heuristic. Reports !ok when no plausible condition can be built.
func resolveJoin(
	left, right schema.TableDescriptor,
	graph *knowledge.Graph,
) (string, float64, bool) {
	if edge, ok := graph.EdgeBetween(left.QualifiedName(), right.QualifiedName()); ok {
		if condition, confidence, ok := joinCondition(edge); ok {
			return condition, confidence, true
		}
	}

	if condition, ok := domainPatternJoin(left, right); ok {
		return condition, domainJoinConfidence, true
	}

	if condition, ok := heuristicJoin(left, right); ok {
		return condition, genericJoinConfidence, true
	}

	return "", 0, false
}

// domainPatternJoin matches the two tables against the known join table
func domainPatternJoin(left, right schema.TableDescriptor) (string, bool) {
	leftLower := strings.ToLower(left.Name)
	rightLower := strings.ToLower(right.Name)

	for _, pattern := range domainJoinPatterns {
		if strings.Contains(leftLower, pattern.leftNoun) &&
			strings.Contains(rightLower, pattern.rightNoun) {
			if condition, ok := patternCondition(left, right, pattern.leftColumn, pattern.rightColumn); ok {
				return condition, true
			}
		}

		if strings.Contains(leftLower, pattern.rightNoun) &&
			strings.Contains(rightLower, pattern.leftNoun) {
			if condition, ok := patternCondition(left, right, pattern.rightColumn, pattern.leftColumn); ok {
				return condition, true
			}
		}
	}

	return "", false
}

// patternCondition verifies both join columns actually exist before rendering
func patternCondition(
	left, right schema.TableDescriptor,
	leftColumn, rightColumn string,
) (string, bool) {
	leftCol, ok := findColumnLike(left, leftColumn)
	if !ok {
		return "", false
	}

	rightCol, ok := findColumnLike(right, rightColumn)
	if !ok {
		return "", false
	}

	return fmt.Sprintf("%s.%s = %s.%s",
		left.QualifiedName(), leftCol, right.QualifiedName(), rightCol), true
}

// heuristicJoin tries id / <singular-table>_id in both directions
func heuristicJoin(left, right schema.TableDescriptor) (string, bool) {
	// right carries a fk named after left
	if fk, ok := findColumnLike(right, singular(left.Name)+"_id"); ok {
		if pk, ok := findColumnLike(left, "id"); ok {
			return fmt.Sprintf("%s.%s = %s.%s",
				left.QualifiedName(), pk, right.QualifiedName(), fk), true
		}
	}

	// left carries a fk named after right
	if fk, ok := findColumnLike(left, singular(right.Name)+"_id"); ok {
		if pk, ok := findColumnLike(right, "id"); ok {
			return fmt.Sprintf("%s.%s = %s.%s",
				left.QualifiedName(), fk, right.QualifiedName(), pk), true
		}
	}

	return "", false
}

// findColumnLike finds a column by loose name match: exact first, then a
// squashed comparison that ignores underscores and case, so employee_id
// matches EmployeeID.
func findColumnLike(table schema.TableDescriptor, name string) (string, bool) {
	for _, col := range table.Columns {
		if strings.EqualFold(col.Name, name) {
			return col.Name, true
		}
	}

	squashed := squash(name)

	for _, col := range table.Columns {
		if squash(col.Name) == squashed {
			return col.Name, true
		}
	}

	// "id" also matches the table's own primary key convention, e.g.
	// EmployeeID on the Employee table
	if squashed == "id" {
		for _, col := range table.Columns {
			if col.PrimaryKey {
				return col.Name, true
			}

			if squash(col.Name) == squash(singular(table.Name)+"_id") {
				return col.Name, true
			}
		}
	}

	return "", false
}

func squash(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "")
}

// singular trims a naive plural suffix
func singular(name string) string {
	lower := strings.ToLower(name)

	if strings.HasSuffix(lower, "ies") {
		return strings.TrimSuffix(lower, "ies") + "y"
	}

	if strings.HasSuffix(lower, "s") && !strings.HasSuffix(lower, "ss") {
		return strings.TrimSuffix(lower, "s")
	}

	return lower
}
