package synthesis

import (
	"fmt"
	"strings"

	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/schema"
)

// columnFetchCount is how many column candidates per table the fallback
// assembler retrieves before intent filtering.
const columnFetchCount = 6

// assembleFallback is the generic vector-ranked assembly phase, entered only
// when no deterministic pattern produced output. It selects one or two
// tables, filters columns by intent relevance, and builds clauses in fixed
// order, each carrying its own confidence.
func (e *Engine) assembleFallback(
	intent schema.QueryIntent,
	primary schemaView,
	candidates []knowledge.TableMatch,
) (*draft, bool) {
	views := e.chooseTables(intent, primary, candidates)

	d := &draft{}

	// The join resolves before any clause is built so an unjoinable secondary
	// table is dropped entirely; nothing downstream may reference it.
	var joinClause Clause

	hasJoin := false

	if len(views) == 2 {
		graph := e.kb.RelationshipContext([]string{views[0].qualified(), views[1].qualified()})

		condition, confidence, ok := resolveJoin(views[0].table, views[1].table, graph)
		if !ok {
			views = views[:1]
		} else {
			joinType := "LEFT"
			if intent.Type.IsAggregation() {
				joinType = "INNER"
			}

			d.joins = append(d.joins, condition)
			joinClause = Clause{
				Kind:       ClauseJoin,
				Text:       fmt.Sprintf("%s JOIN %s ON %s", joinType, views[1].qualified(), condition),
				Confidence: confidence,
			}
			hasJoin = true
		}
	}

	for _, v := range views {
		d.tables = append(d.tables, v.qualified())
	}

	selectClause, columns, ok := e.buildSelect(intent, views)
	if !ok {
		return nil, false
	}

	d.columns = columns
	d.clauses = append(d.clauses, selectClause)

	d.clauses = append(d.clauses, Clause{
		Kind:       ClauseFrom,
		Text:       "FROM " + views[0].qualified(),
		Confidence: 0.9,
	})

	if hasJoin {
		d.clauses = append(d.clauses, joinClause)
	}

	if whereClause, ok := e.buildWhere(intent, views[0]); ok {
		d.clauses = append(d.clauses, whereClause)
	}

	if groupClause, groupCol, ok := e.buildGroupBy(intent, views[0]); ok {
		// The grouping column must also appear in the projection
		if !projectsColumn(d.columns, groupCol) {
			d.clauses[0].Text = strings.Replace(d.clauses[0].Text,
				"SELECT ", "SELECT "+groupCol+", ", 1)
			d.columns = append([]string{groupCol}, d.columns...)
		}

		d.clauses = append(d.clauses, groupClause)
	}

	if orderClause, ok := e.buildOrderBy(intent, views[0]); ok {
		d.clauses = append(d.clauses, orderClause)
	}

	return d, true
}

// projectsColumn reports whether the projection already carries the column,
// matching qualified entries by their bare name. Substring checks are not
// enough here: a column named Type must not count as projected just because
// SubType is.
func projectsColumn(columns []string, name string) bool {
	for _, col := range columns {
		if col == name || strings.HasSuffix(col, "."+name) {
			return true
		}
	}

	return false
}

// chooseTables restricts to a single table for simple aggregation-style
// phrasing or low declared complexity, otherwise allows a second table when
// one is available.
func (e *Engine) chooseTables(
	intent schema.QueryIntent,
	primary schemaView,
	candidates []knowledge.TableMatch,
) []schemaView {
	views := []schemaView{primary}

	if e.cfg.MaxTables < 2 {
		return views
	}

	if intent.ComplexityLevel == schema.ComplexitySimple {
		return views
	}

	if intent.Type.IsAggregation() && !hasGroupingCue(intent.OriginalText) {
		return views
	}

	for _, match := range candidates {
		if match.QualifiedName() == primary.qualified() {
			continue
		}

		table, ok := e.kb.Table(match.QualifiedName())
		if !ok {
			continue
		}

		views = append(views, schemaView{match: match, table: table})

		break
	}

	return views
}

// buildSelect constructs the projection by intent type. Aggregation intents
// need a numeric column and report !ok without one; the caller then yields
// no result rather than guessing.
func (e *Engine) buildSelect(
	intent schema.QueryIntent,
	views []schemaView,
) (Clause, []string, bool) {
	primary := views[0]

	switch {
	case intent.Type == schema.IntentCount:
		return Clause{
			Kind:       ClauseSelect,
			Text:       "SELECT COUNT(*)",
			Confidence: 0.85,
		}, nil, true

	case intent.Type.IsAggregation():
		col, ok := e.pickNumericColumn(intent, primary)
		if !ok {
			return Clause{}, nil, false
		}

		fn := aggregateFunction(intent, intent.OriginalText)

		return Clause{
			Kind:       ClauseSelect,
			Text:       fmt.Sprintf("SELECT %s(%s)", fn, col),
			Confidence: 0.75,
		}, []string{col}, true

	default:
		columns := e.pickListColumns(intent, views)
		if len(columns) == 0 {
			return Clause{}, nil, false
		}

		return Clause{
			Kind:       ClauseSelect,
			Text:       "SELECT " + strings.Join(columns, ", "),
			Confidence: 0.7,
		}, columns, true
	}
}

// pickNumericColumn prefers the similarity ranking, filtered to numeric
// types, falling back to descriptor order.
func (e *Engine) pickNumericColumn(intent schema.QueryIntent, view schemaView) (string, bool) {
	matches := e.kb.FindSimilarColumns(intent.QueryVector, view.qualified(), columnFetchCount)

	for _, match := range matches {
		if isNumericType(match.DataType) && !isIdentifierColumn(match.BareName()) {
			return match.BareName(), true
		}
	}

	if col, ok := findAggregateColumn(intent.OriginalText, view.table); ok {
		return col.Name, true
	}

	return "", false
}

// pickListColumns takes the highest-similarity columns for each chosen table,
// qualified when more than one table is in play.
func (e *Engine) pickListColumns(intent schema.QueryIntent, views []schemaView) []string {
	var columns []string

	qualify := len(views) > 1

	for _, view := range views {
		matches := e.kb.FindSimilarColumns(intent.QueryVector, view.qualified(), columnFetchCount)

		count := 0

		for _, match := range matches {
			// Identifier columns only matter for counting intents
			if isIdentifierColumn(match.BareName()) && intent.Type != schema.IntentCount {
				continue
			}

			name := match.BareName()
			if qualify {
				name = view.qualified() + "." + name
			}

			columns = append(columns, name)
			count++

			if count == e.cfg.MaxListColumns {
				break
			}
		}
	}

	// Columns may be missing when the store has no column vectors for the
	// table; fall back to descriptor order
	if len(columns) == 0 {
		for _, view := range views {
			for i, col := range view.table.Columns {
				if i == e.cfg.MaxListColumns {
					break
				}

				name := col.Name
				if qualify {
					name = view.qualified() + "." + name
				}

				columns = append(columns, name)
			}
		}
	}

	if len(columns) > e.cfg.MaxListColumns*len(views) {
		columns = columns[:e.cfg.MaxListColumns*len(views)]
	}

	return columns
}

// buildWhere adds one partial-match filter per person-like entity
func (e *Engine) buildWhere(intent schema.QueryIntent, view schemaView) (Clause, bool) {
	people := intent.PersonEntities()
	if len(people) == 0 {
		return Clause{}, false
	}

	nameCol, ok := findNameColumn(view.table)
	if !ok {
		return Clause{}, false
	}

	var conditions []string

	for _, entity := range people {
		conditions = append(conditions, fmt.Sprintf(
			"LOWER(%s) LIKE '%%%s%%'", nameCol.Name, strings.ToLower(entity.Name)))
	}

	return Clause{
		Kind:       ClauseWhere,
		Text:       "WHERE " + strings.Join(conditions, " AND "),
		Confidence: 0.65,
	}, true
}

// buildGroupBy emits a grouping clause when the text carries a cue and the
// table has a categorical column
func (e *Engine) buildGroupBy(
	intent schema.QueryIntent,
	view schemaView,
) (Clause, string, bool) {
	if !intent.Type.IsAggregation() || !hasGroupingCue(intent.OriginalText) {
		return Clause{}, "", false
	}

	col, ok := findCategoricalColumn(intent.OriginalText, view.table)
	if !ok {
		return Clause{}, "", false
	}

	return Clause{
		Kind:       ClauseGroupBy,
		Text:       "GROUP BY " + col.Name,
		Confidence: 0.7,
	}, col.Name, true
}

// buildOrderBy orders by the best numeric column when the request asks for
// extremes
func (e *Engine) buildOrderBy(intent schema.QueryIntent, view schemaView) (Clause, bool) {
	if !textHasAny(intent.OriginalText, []string{"top", "highest", "largest", "most", "lowest", "least"}) {
		return Clause{}, false
	}

	col, ok := findAggregateColumn(intent.OriginalText, view.table)
	if !ok {
		return Clause{}, false
	}

	direction := "DESC"
	if textHasAny(intent.OriginalText, []string{"lowest", "least", "smallest"}) {
		direction = "ASC"
	}

	return Clause{
		Kind:       ClauseOrderBy,
		Text:       fmt.Sprintf("ORDER BY %s %s", col.Name, direction),
		Confidence: 0.6,
	}, true
}
