package knowledge

import (
	"strconv"
	"strings"
)

// TableMatch is a ranked table candidate from a similarity search. Derived on
// demand from an element plus the query vector; never persisted.
type TableMatch struct {
	Name             string            `json:"name"`
	Schema           string            `json:"schema"`
	SimilarityScore  float64           `json:"similarity_score"`
	ContextRelevance float64           `json:"context_relevance"`
	BusinessPriority float64           `json:"business_priority"`
	CompositeScore   float64           `json:"composite_score"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// QualifiedName returns the schema-qualified table name
func (m TableMatch) QualifiedName() string {
	if m.Schema == "" {
		return m.Name
	}

	return m.Schema + "." + m.Name
}

// ColumnMatch is a ranked column candidate from a similarity search
type ColumnMatch struct {
	Name             string            `json:"name"`
	Schema           string            `json:"schema"`
	Table            string            `json:"table"`
	DataType         string            `json:"data_type"`
	SimilarityScore  float64           `json:"similarity_score"`
	ContextRelevance float64           `json:"context_relevance"`
	CompositeScore   float64           `json:"composite_score"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// BareName returns the column name without its table prefix
func (m ColumnMatch) BareName() string {
	if idx := strings.LastIndex(m.Name, "."); idx >= 0 {
		return m.Name[idx+1:]
	}

	return m.Name
}

// coreBusinessNouns are names that mark a table as central to most query
// workloads regardless of its measured usage.
var coreBusinessNouns = []string{"employee", "project", "customer", "order", "user"}

// contextRelevance scores how contextually important an element is, boosted
// by the "primary" and "important" semantic tags.
func contextRelevance(e *Element) float64 {
	score := 0.5

	if e.hasTag("primary") {
		score += 0.3
	}

	if e.hasTag("important") {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}

	return score
}

// businessPriority scores an element by whether its name matches a core
// business noun or its recorded usage frequency exceeds the configured floor.
func businessPriority(e *Element, usageFloor float64) float64 {
	nameLower := strings.ToLower(e.Name)

	for _, noun := range coreBusinessNouns {
		if strings.Contains(nameLower, noun) {
			return 0.9
		}
	}

	if raw, ok := e.Metadata["usage_frequency"]; ok {
		if freq, err := strconv.ParseFloat(raw, 64); err == nil && freq > usageFloor {
			return 0.8
		}
	}

	return 0.5
}
