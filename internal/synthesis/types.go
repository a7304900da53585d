package synthesis

import (
	"strings"

	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/schema"
)

// ClauseKind identifies a SQL clause in canonical assembly order
type ClauseKind string

const (
	ClauseSelect  ClauseKind = "SELECT"
	ClauseFrom    ClauseKind = "FROM"
	ClauseJoin    ClauseKind = "JOIN"
	ClauseWhere   ClauseKind = "WHERE"
	ClauseGroupBy ClauseKind = "GROUP_BY"
	ClauseHaving  ClauseKind = "HAVING"
	ClauseOrderBy ClauseKind = "ORDER_BY"
)

// clauseOrder is the fixed assembly order for final SQL text
var clauseOrder = []ClauseKind{
	ClauseSelect, ClauseFrom, ClauseJoin, ClauseWhere,
	ClauseGroupBy, ClauseHaving, ClauseOrderBy,
}

// Clause is one constructed SQL clause carrying its own confidence
type Clause struct {
	Kind       ClauseKind        `json:"kind"`
	Text       string            `json:"text"`
	Confidence float64           `json:"confidence"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Query is a synthesized query with confidence and provenance metadata
type Query struct {
	SQL        string   `json:"sql"`
	Confidence float64  `json:"confidence"`
	Complexity float64  `json:"complexity"`
	Tables     []string `json:"tables"`
	Columns    []string `json:"columns"`
	Joins      []string `json:"joins"`
	Strategy   string   `json:"strategy"`

	clauses []Clause
}

// ErrNoResult is the explicit "no query produced" sentinel. It is distinct
// from an empty-but-valid query; callers fall back to the external LLM
// generator when they see it.
var ErrNoResult = errors.New(errors.ErrTypeSynthesis, "no query produced")

// assembleSQL joins clause texts in canonical order
func assembleSQL(clauses []Clause) string {
	var parts []string

	for _, kind := range clauseOrder {
		for _, clause := range clauses {
			if clause.Kind == kind && clause.Text != "" {
				parts = append(parts, clause.Text)
			}
		}
	}

	return strings.Join(parts, " ")
}

// meanClauseConfidence averages the per-clause confidences
func meanClauseConfidence(clauses []Clause) float64 {
	if len(clauses) == 0 {
		return 0
	}

	var sum float64
	for _, clause := range clauses {
		sum += clause.Confidence
	}

	return sum / float64(len(clauses))
}

// complexityScore weights clause count, joins, and aggregation presence
func complexityScore(clauses []Clause) float64 {
	var score float64

	joins := 0
	hasAggregate := false
	hasGroupBy := false

	for _, clause := range clauses {
		score += 0.05

		switch clause.Kind {
		case ClauseJoin:
			joins++
		case ClauseGroupBy:
			hasGroupBy = true
		case ClauseSelect:
			upper := strings.ToUpper(clause.Text)
			if strings.Contains(upper, "COUNT(") || strings.Contains(upper, "SUM(") ||
				strings.Contains(upper, "AVG(") || strings.Contains(upper, "MAX(") ||
				strings.Contains(upper, "MIN(") || strings.Contains(upper, " OVER ") {
				hasAggregate = true
			}
		}
	}

	score += 0.2 * float64(joins)

	if hasAggregate {
		score += 0.15
	}

	if hasGroupBy {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

// schemaView is the per-synthesis view of a chosen table
type schemaView struct {
	match knowledge.TableMatch
	table schema.TableDescriptor
}

func (v schemaView) qualified() string {
	return v.table.QualifiedName()
}
