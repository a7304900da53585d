package synthesis

import (
	"strings"

	"github.com/synthql/synthql/internal/schema"
)

// domainSynonyms maps a canonical table noun to the words a request may use
// for it. Keyword scoring counts matches between the query text and the
// lexicon entry whose noun appears in the table name.
var domainSynonyms = map[string][]string{
	"employee":   {"employee", "employees", "staff", "worker", "workers", "personnel", "people"},
	"project":    {"project", "projects", "task", "tasks", "initiative", "assignment"},
	"customer":   {"customer", "customers", "client", "clients", "account", "accounts"},
	"order":      {"order", "orders", "purchase", "purchases", "sale", "sales"},
	"timesheet":  {"timesheet", "timesheets", "hours", "time", "entries", "logged"},
	"department": {"department", "departments", "team", "teams", "division"},
	"user":       {"user", "users", "member", "members"},
	"invoice":    {"invoice", "invoices", "bill", "bills", "billing"},
}

// groupingCues are the words that signal a GROUP BY is wanted
var groupingCues = []string{"by ", "per ", "each ", "group", "breakdown", "department", "category"}

// hasGroupingCue reports whether the request text asks for grouped output
func hasGroupingCue(text string) bool {
	lower := strings.ToLower(text)

	for _, cue := range groupingCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}

	return false
}

// keywordScore is the fraction of query tokens covered by the table's
// vocabulary: its name, the synonyms of any domain noun the name carries, its
// column names, and its description. A table whose columns spell out the
// words of the request scores high even when the table name itself never
// appears in the text.
func keywordScore(queryText string, table schema.TableDescriptor) float64 {
	tableLower := strings.ToLower(table.Name)

	var vocab strings.Builder

	vocab.WriteString(tableLower)
	vocab.WriteString(" ")
	vocab.WriteString(strings.ToLower(table.Description))

	for _, col := range table.Columns {
		vocab.WriteString(" ")
		vocab.WriteString(strings.ToLower(col.Name))
	}

	for noun, synonyms := range domainSynonyms {
		if !strings.Contains(tableLower, noun) {
			continue
		}

		for _, synonym := range synonyms {
			vocab.WriteString(" ")
			vocab.WriteString(synonym)
		}
	}

	haystack := vocab.String()

	covered := 0
	total := 0

	for _, token := range strings.Fields(strings.ToLower(queryText)) {
		token = strings.Trim(token, ".,?!'\"")
		if len(token) < 3 {
			continue
		}

		total++

		if strings.Contains(haystack, token) || strings.Contains(token, tableLower) {
			covered++
		}
	}

	if total == 0 {
		return 0
	}

	return float64(covered) / float64(total)
}

// numericTypes fragments that mark a column as numeric
var numericTypes = []string{
	"int", "decimal", "numeric", "float", "double", "real", "money", "number",
}

func isNumericType(dataType string) bool {
	lower := strings.ToLower(dataType)

	for _, t := range numericTypes {
		if strings.Contains(lower, t) {
			return true
		}
	}

	return false
}

var dateTypes = []string{"date", "time", "timestamp"}

func isDateType(dataType string) bool {
	lower := strings.ToLower(dataType)

	for _, t := range dateTypes {
		if strings.Contains(lower, t) {
			return true
		}
	}

	return false
}

func isTextType(dataType string) bool {
	lower := strings.ToLower(dataType)

	return strings.Contains(lower, "char") || strings.Contains(lower, "text") ||
		strings.Contains(lower, "string")
}

// findAggregateColumn picks the numeric column for an aggregate by domain
// keyword: salary-like for pay questions, duration-like for time questions,
// else the first numeric column. Returns false when the table has none.
func findAggregateColumn(text string, table schema.TableDescriptor) (schema.ColumnDescriptor, bool) {
	lower := strings.ToLower(text)

	type picker struct {
		queryWords  []string
		columnWords []string
	}

	pickers := []picker{
		{
			queryWords:  []string{"salary", "pay", "wage", "compensation", "earn"},
			columnWords: []string{"salary", "pay", "wage", "compensation"},
		},
		{
			queryWords:  []string{"hours", "time", "duration", "worked"},
			columnWords: []string{"hours", "duration", "minutes", "time"},
		},
		{
			queryWords:  []string{"price", "cost", "amount", "total", "revenue"},
			columnWords: []string{"price", "cost", "amount", "total", "revenue"},
		},
	}

	for _, p := range pickers {
		wanted := false

		for _, w := range p.queryWords {
			if strings.Contains(lower, w) {
				wanted = true
				break
			}
		}

		if !wanted {
			continue
		}

		for _, col := range table.Columns {
			if !isNumericType(col.Type) {
				continue
			}

			colLower := strings.ToLower(col.Name)

			for _, w := range p.columnWords {
				if strings.Contains(colLower, w) {
					return col, true
				}
			}
		}
	}

	for _, col := range table.Columns {
		if isNumericType(col.Type) && !isIdentifierColumn(col.Name) {
			return col, true
		}
	}

	return schema.ColumnDescriptor{}, false
}

// categoricalWords mark a column as a natural GROUP BY target
var categoricalWords = []string{"type", "category", "status", "group", "department"}

// findCategoricalColumn returns the first column whose name suggests a
// category, preferring a department match when the text mentions departments.
func findCategoricalColumn(text string, table schema.TableDescriptor) (schema.ColumnDescriptor, bool) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "department") {
		for _, col := range table.Columns {
			if strings.Contains(strings.ToLower(col.Name), "department") {
				return col, true
			}
		}
	}

	for _, col := range table.Columns {
		colLower := strings.ToLower(col.Name)

		for _, w := range categoricalWords {
			if strings.Contains(colLower, w) {
				return col, true
			}
		}
	}

	return schema.ColumnDescriptor{}, false
}

// findNameColumn returns the best person/display-name column: an explicit
// name/title/label match first, else the first text column.
func findNameColumn(table schema.TableDescriptor) (schema.ColumnDescriptor, bool) {
	for _, col := range table.Columns {
		colLower := strings.ToLower(col.Name)

		if strings.Contains(colLower, "name") || strings.Contains(colLower, "title") ||
			strings.Contains(colLower, "label") {
			return col, true
		}
	}

	for _, col := range table.Columns {
		if isTextType(col.Type) {
			return col, true
		}
	}

	return schema.ColumnDescriptor{}, false
}

// findDateColumn returns the first date-typed column, preferring hire/start
// style names when the text asks about tenure.
func findDateColumn(text string, table schema.TableDescriptor) (schema.ColumnDescriptor, bool) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "hire") || strings.Contains(lower, "tenure") ||
		strings.Contains(lower, "joined") {
		for _, col := range table.Columns {
			colLower := strings.ToLower(col.Name)

			if isDateType(col.Type) &&
				(strings.Contains(colLower, "hire") || strings.Contains(colLower, "start") ||
					strings.Contains(colLower, "join")) {
				return col, true
			}
		}
	}

	for _, col := range table.Columns {
		if isDateType(col.Type) {
			return col, true
		}
	}

	return schema.ColumnDescriptor{}, false
}

func isIdentifierColumn(name string) bool {
	lower := strings.ToLower(name)

	return lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "id")
}

// columnRelevance ranks a column for listing output: display-name columns
// first, identifiers lightly boosted, everything else by retrieval order.
func columnRelevance(name string, retrievalRank int) float64 {
	lower := strings.ToLower(name)

	score := 1.0 / float64(retrievalRank+1)

	if strings.Contains(lower, "name") || strings.Contains(lower, "title") ||
		strings.Contains(lower, "description") {
		score += 0.5
	} else if isIdentifierColumn(lower) || strings.Contains(lower, "key") {
		score += 0.1
	}

	return score
}

// textHasAny reports whether the text contains any of the given triggers
func textHasAny(text string, triggers []string) bool {
	lower := strings.ToLower(text)

	for _, trigger := range triggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}

	return false
}
