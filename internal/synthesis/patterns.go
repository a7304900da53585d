package synthesis

import (
	"fmt"
	"strings"

	"github.com/synthql/synthql/internal/schema"
)

// patternContext is the per-invocation input to a pattern rule: the intent,
// its lowered text, and the chosen table view.
type patternContext struct {
	intent schema.QueryIntent
	text   string
	view   schemaView
	engine *Engine
}

// draft is the intermediate output of a pattern rule or the fallback
// assembler before confidence and complexity are finalized
type draft struct {
	clauses []Clause
	tables  []string
	columns []string
	joins   []string
}

// patternRule is one deterministic SQL generator. Rules are pure: given the
// same context they produce the same draft. A rule that cannot find a column
// it needs reports !ok and the cascade falls through to the next rule.
type patternRule struct {
	name    string
	applies func(*patternContext) bool
	build   func(*patternContext) (*draft, bool)
}

// patternRules is the fixed priority order of the deterministic phase. The
// first rule whose trigger matches and whose build succeeds wins.
var patternRules = []patternRule{
	{
		name: "ranking",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"rank", "top ", "highest", "lowest", "row number"})
		},
		build: buildRanking,
	},
	{
		name: "running_total",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"running total", "cumulative"})
		},
		build: buildRunningTotal,
	},
	{
		name: "lag_lead",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"previous", "prior period", "change from", "next value"})
		},
		build: buildLagLead,
	},
	{
		name: "multi_step_aggregation",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"average of total", "average total", "avg of total", "mean of total"})
		},
		build: buildMultiStepAggregation,
	},
	{
		name: "conditional_categorization",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"categorize", "categorise", "classify", "bucket", "label each"})
		},
		build: buildConditionalCategorization,
	},
	{
		name: "date_filter",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"tenure", "hired before", "hired after", "longer than", "more than a year", "recently hired"})
		},
		build: buildDateFilter,
	},
	{
		name: "string_operations",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"first name", "last name", "initials", "split the name"})
		},
		build: buildStringOperations,
	},
	{
		name: "existence_subquery",
		applies: func(p *patternContext) bool {
			return textHasAny(p.text, []string{"without", "not assigned", "never ", "missing", "have no "})
		},
		build: buildExistenceSubquery,
	},
	{
		name: "count",
		applies: func(p *patternContext) bool {
			return p.intent.Type == schema.IntentCount ||
				textHasAny(p.text, []string{"how many", "count", "number of"})
		},
		build: buildCount,
	},
	{
		name: "aggregate",
		applies: func(p *patternContext) bool {
			switch p.intent.Type {
			case schema.IntentSum, schema.IntentAverage, schema.IntentMax, schema.IntentMin:
				return true
			}

			return textHasAny(p.text, []string{"total", "sum", "average", "mean", "maximum", "minimum"})
		},
		build: buildAggregate,
	},
	{
		name: "list",
		applies: func(p *patternContext) bool {
			return p.intent.Type == schema.IntentList ||
				textHasAny(p.text, []string{"list", "show", "display", "find", "all "})
		},
		build: buildList,
	},
}

func buildRanking(p *patternContext) (*draft, bool) {
	numCol, ok := findAggregateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	nameCol, ok := findNameColumn(p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	direction := "DESC"
	if textHasAny(p.text, []string{"lowest", "bottom", "least"}) {
		direction = "ASC"
	}

	d := &draft{
		tables:  []string{table},
		columns: []string{nameCol.Name, numCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind: ClauseSelect,
			Text: fmt.Sprintf("SELECT %s, %s, ROW_NUMBER() OVER (ORDER BY %s %s) AS rank",
				nameCol.Name, numCol.Name, numCol.Name, direction),
			Confidence: 0.8,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

func buildRunningTotal(p *patternContext) (*draft, bool) {
	numCol, ok := findAggregateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	orderCol, ok := findDateColumn(p.text, p.view.table)
	if !ok {
		// Fall back to the primary key as the running order
		for _, col := range p.view.table.Columns {
			if col.PrimaryKey {
				orderCol, ok = col, true
				break
			}
		}
	}

	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	d := &draft{
		tables:  []string{table},
		columns: []string{orderCol.Name, numCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind: ClauseSelect,
			Text: fmt.Sprintf("SELECT %s, %s, SUM(%s) OVER (ORDER BY %s) AS running_total",
				orderCol.Name, numCol.Name, numCol.Name, orderCol.Name),
			Confidence: 0.75,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

func buildLagLead(p *patternContext) (*draft, bool) {
	numCol, ok := findAggregateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	orderCol, ok := findDateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	fn := "LAG"
	alias := "previous_value"

	if textHasAny(p.text, []string{"next value"}) {
		fn = "LEAD"
		alias = "next_value"
	}

	d := &draft{
		tables:  []string{table},
		columns: []string{orderCol.Name, numCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind: ClauseSelect,
			Text: fmt.Sprintf("SELECT %s, %s, %s(%s) OVER (ORDER BY %s) AS %s",
				orderCol.Name, numCol.Name, fn, numCol.Name, orderCol.Name, alias),
			Confidence: 0.7,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

func buildMultiStepAggregation(p *patternContext) (*draft, bool) {
	numCol, ok := findAggregateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	catCol, ok := findCategoricalColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	d := &draft{
		tables:  []string{table},
		columns: []string{catCol.Name, numCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{Kind: ClauseSelect, Text: "SELECT AVG(sub.group_total)", Confidence: 0.7},
		Clause{
			Kind: ClauseFrom,
			Text: fmt.Sprintf("FROM (SELECT %s, SUM(%s) AS group_total FROM %s GROUP BY %s) AS sub",
				catCol.Name, numCol.Name, table, catCol.Name),
			Confidence: 0.7,
		},
	)

	return d, true
}

func buildConditionalCategorization(p *patternContext) (*draft, bool) {
	numCol, ok := findAggregateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	nameCol, ok := findNameColumn(p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	d := &draft{
		tables:  []string{table},
		columns: []string{nameCol.Name, numCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind: ClauseSelect,
			Text: fmt.Sprintf(
				"SELECT %s, %s, CASE WHEN %s > (SELECT AVG(%s) FROM %s) THEN 'above average' ELSE 'at or below average' END AS category",
				nameCol.Name, numCol.Name, numCol.Name, numCol.Name, table),
			Confidence: 0.7,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

func buildDateFilter(p *patternContext) (*draft, bool) {
	dateCol, ok := findDateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	nameCol, ok := findNameColumn(p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	// Tenure-style questions look backwards; recency looks forwards
	operator := "<="
	if textHasAny(p.text, []string{"recently", "hired after", "last "}) {
		operator = ">="
	}

	d := &draft{
		tables:  []string{table},
		columns: []string{nameCol.Name, dateCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind:       ClauseSelect,
			Text:       fmt.Sprintf("SELECT %s, %s", nameCol.Name, dateCol.Name),
			Confidence: 0.8,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
		Clause{
			Kind: ClauseWhere,
			Text: fmt.Sprintf("WHERE %s %s CURRENT_DATE - INTERVAL '1 year'",
				dateCol.Name, operator),
			Confidence: 0.6,
		},
	)

	return d, true
}

func buildStringOperations(p *patternContext) (*draft, bool) {
	nameCol, ok := findNameColumn(p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	d := &draft{
		tables:  []string{table},
		columns: []string{nameCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind: ClauseSelect,
			Text: fmt.Sprintf(
				"SELECT SPLIT_PART(%s, ' ', 1) AS first_name, SPLIT_PART(%s, ' ', 2) AS last_name",
				nameCol.Name, nameCol.Name),
			Confidence: 0.7,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

func buildExistenceSubquery(p *patternContext) (*draft, bool) {
	nameCol, ok := findNameColumn(p.view.table)
	if !ok {
		return nil, false
	}

	table := p.view.qualified()

	// Needs a related table to test existence against
	graph := p.engine.kb.RelationshipContext([]string{table})

	var related string

	var condition string

	for _, edge := range graph.Edges {
		other := edge.TargetTable
		otherCol := edge.Metadata.TargetColumn
		ownCol := edge.Metadata.SourceColumn

		if other == table {
			other = edge.SourceTable
			otherCol = edge.Metadata.SourceColumn
			ownCol = edge.Metadata.TargetColumn
		}

		related = other
		condition = fmt.Sprintf("%s.%s = %s.%s", other, otherCol, table, ownCol)

		break
	}

	if related == "" {
		return nil, false
	}

	d := &draft{
		tables:  []string{table, related},
		columns: []string{nameCol.Name},
	}

	d.clauses = append(d.clauses,
		Clause{Kind: ClauseSelect, Text: "SELECT " + nameCol.Name, Confidence: 0.8},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
		Clause{
			Kind: ClauseWhere,
			Text: fmt.Sprintf("WHERE NOT EXISTS (SELECT 1 FROM %s WHERE %s)",
				related, condition),
			Confidence: 0.65,
		},
	)

	return d, true
}

func buildCount(p *patternContext) (*draft, bool) {
	table := p.view.qualified()

	d := &draft{tables: []string{table}}

	if hasGroupingCue(p.text) {
		if catCol, ok := findCategoricalColumn(p.text, p.view.table); ok {
			d.columns = []string{catCol.Name}
			d.clauses = append(d.clauses,
				Clause{
					Kind:       ClauseSelect,
					Text:       fmt.Sprintf("SELECT %s, COUNT(*)", catCol.Name),
					Confidence: 0.85,
				},
				Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
				Clause{Kind: ClauseGroupBy, Text: "GROUP BY " + catCol.Name, Confidence: 0.8},
			)

			return d, true
		}
	}

	d.clauses = append(d.clauses,
		Clause{Kind: ClauseSelect, Text: "SELECT COUNT(*)", Confidence: 0.9},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

func buildAggregate(p *patternContext) (*draft, bool) {
	numCol, ok := findAggregateColumn(p.text, p.view.table)
	if !ok {
		return nil, false
	}

	fn := aggregateFunction(p.intent, p.text)
	table := p.view.qualified()

	d := &draft{
		tables:  []string{table},
		columns: []string{numCol.Name},
	}

	if hasGroupingCue(p.text) {
		if catCol, ok := findGroupingColumn(p); ok {
			d.columns = append([]string{catCol.Name}, d.columns...)
			d.clauses = append(d.clauses,
				Clause{
					Kind:       ClauseSelect,
					Text:       fmt.Sprintf("SELECT %s, %s(%s)", catCol.Name, fn, numCol.Name),
					Confidence: 0.8,
				},
				Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
				Clause{Kind: ClauseGroupBy, Text: "GROUP BY " + catCol.Name, Confidence: 0.75},
			)

			return d, true
		}

		if joined, ok := buildJoinedGroupBy(p, fn, numCol); ok {
			return joined, true
		}

		// No target-specific column or related table; fall back to any
		// categorical column in the chosen table
		if catCol, ok := findCategoricalColumn(p.text, p.view.table); ok {
			d.columns = append([]string{catCol.Name}, d.columns...)
			d.clauses = append(d.clauses,
				Clause{
					Kind:       ClauseSelect,
					Text:       fmt.Sprintf("SELECT %s, %s(%s)", catCol.Name, fn, numCol.Name),
					Confidence: 0.75,
				},
				Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
				Clause{Kind: ClauseGroupBy, Text: "GROUP BY " + catCol.Name, Confidence: 0.7},
			)

			return d, true
		}
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind:       ClauseSelect,
			Text:       fmt.Sprintf("SELECT %s(%s)", fn, numCol.Name),
			Confidence: 0.85,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	return d, true
}

// findGroupingColumn looks for a column in the chosen table that matches the
// grouping target named in the text ("by department" -> a department column).
// When the target lives in a different table this reports !ok so the joined
// group-by path can take over; a cue without an explicit target falls back to
// the generic categorical pick.
func findGroupingColumn(p *patternContext) (schema.ColumnDescriptor, bool) {
	target := groupingTarget(p.text)

	if target != "" {
		for _, col := range p.view.table.Columns {
			colLower := strings.ToLower(col.Name)

			if strings.Contains(colLower, target) && !isIdentifierColumn(col.Name) {
				return col, true
			}
		}

		return schema.ColumnDescriptor{}, false
	}

	return findCategoricalColumn(p.text, p.view.table)
}

// buildJoinedGroupBy handles grouping targets that live in a related table,
// e.g. "total hours by project" against a timesheet table: join to the
// project table and group by its display-name column.
func buildJoinedGroupBy(p *patternContext, fn string, numCol schema.ColumnDescriptor) (*draft, bool) {
	target := groupingTarget(p.text)
	if target == "" {
		return nil, false
	}

	table := p.view.qualified()
	graph := p.engine.kb.RelationshipContext([]string{table})

	for _, edge := range graph.Edges {
		other := edge.TargetTable
		if other == table {
			other = edge.SourceTable
		}

		otherTable, ok := p.engine.kb.Table(other)
		if !ok || !strings.Contains(strings.ToLower(otherTable.Name), target) {
			continue
		}

		nameCol, ok := findNameColumn(otherTable)
		if !ok {
			continue
		}

		condition, joinConf, ok := joinCondition(edge)
		if !ok {
			continue
		}

		groupExpr := other + "." + nameCol.Name

		d := &draft{
			tables:  []string{table, other},
			columns: []string{groupExpr, numCol.Name},
			joins:   []string{condition},
		}

		d.clauses = append(d.clauses,
			Clause{
				Kind: ClauseSelect,
				Text: fmt.Sprintf("SELECT %s, %s(%s.%s)",
					groupExpr, fn, table, numCol.Name),
				Confidence: 0.8,
			},
			Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
			Clause{
				Kind:       ClauseJoin,
				Text:       fmt.Sprintf("INNER JOIN %s ON %s", other, condition),
				Confidence: joinConf,
			},
			Clause{Kind: ClauseGroupBy, Text: "GROUP BY " + groupExpr, Confidence: 0.75},
		)

		return d, true
	}

	return nil, false
}

// groupingTarget extracts the word following a grouping cue ("by project" ->
// "project"), singularized naively.
func groupingTarget(text string) string {
	tokens := strings.Fields(strings.ToLower(text))

	for i, token := range tokens {
		if (token == "by" || token == "per" || token == "each") && i+1 < len(tokens) {
			target := strings.Trim(tokens[i+1], ".,?!")

			return strings.TrimSuffix(target, "s")
		}
	}

	return ""
}

// aggregateFunction maps intent and text to the SQL aggregate
func aggregateFunction(intent schema.QueryIntent, text string) string {
	switch intent.Type {
	case schema.IntentSum:
		return "SUM"
	case schema.IntentAverage:
		return "AVG"
	case schema.IntentMax:
		return "MAX"
	case schema.IntentMin:
		return "MIN"
	}

	switch {
	case textHasAny(text, []string{"average", "mean"}):
		return "AVG"
	case textHasAny(text, []string{"maximum", "highest", "largest"}):
		return "MAX"
	case textHasAny(text, []string{"minimum", "lowest", "smallest"}):
		return "MIN"
	default:
		return "SUM"
	}
}

func buildList(p *patternContext) (*draft, bool) {
	table := p.view.qualified()

	type rankedColumn struct {
		name  string
		score float64
	}

	var ranked []rankedColumn

	for i, col := range p.view.table.Columns {
		ranked = append(ranked, rankedColumn{
			name:  col.Name,
			score: columnRelevance(col.Name, i),
		})
	}

	if len(ranked) == 0 {
		return nil, false
	}

	for i := range len(ranked) - 1 {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].score > ranked[i].score {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}

	maxCols := p.engine.cfg.MaxListColumns
	if len(ranked) > maxCols {
		ranked = ranked[:maxCols]
	}

	names := make([]string, len(ranked))
	for i, rc := range ranked {
		names[i] = rc.name
	}

	d := &draft{
		tables:  []string{table},
		columns: names,
	}

	d.clauses = append(d.clauses,
		Clause{
			Kind:       ClauseSelect,
			Text:       "SELECT " + strings.Join(names, ", "),
			Confidence: 0.8,
		},
		Clause{Kind: ClauseFrom, Text: "FROM " + table, Confidence: 0.9},
	)

	// One partial-match filter per extracted person entity
	if people := p.intent.PersonEntities(); len(people) > 0 {
		if nameCol, ok := findNameColumn(p.view.table); ok {
			var conditions []string

			for _, entity := range people {
				conditions = append(conditions, fmt.Sprintf(
					"LOWER(%s) LIKE '%%%s%%'",
					nameCol.Name, strings.ToLower(entity.Name)))
			}

			d.clauses = append(d.clauses, Clause{
				Kind:       ClauseWhere,
				Text:       "WHERE " + strings.Join(conditions, " AND "),
				Confidence: 0.7,
			})
		}
	}

	return d, true
}
