package schema

// TableDescriptor describes one table as supplied by the upstream
// metadata discovery layer. It is the unit of ingestion.
type TableDescriptor struct {
	Schema        string                   `json:"schema"`
	Name          string                   `json:"table"`
	Description   string                   `json:"description,omitempty"`
	Columns       []ColumnDescriptor       `json:"columns"`
	Relationships []RelationshipDescriptor `json:"relationships,omitempty"`
	PrimaryKeys   []string                 `json:"primary_keys,omitempty"`
}

// ColumnDescriptor describes a single column of a table
type ColumnDescriptor struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Nullable    bool   `json:"nullable,omitempty"`
	PrimaryKey  bool   `json:"primary_key,omitempty"`
}

// RelationshipDescriptor describes an explicit foreign key declared in metadata
type RelationshipDescriptor struct {
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// QualifiedName returns the schema-qualified table name
func (t TableDescriptor) QualifiedName() string {
	if t.Schema == "" {
		return t.Name
	}

	return t.Schema + "." + t.Name
}

// Column returns the descriptor for the named column, if present
func (t TableDescriptor) Column(name string) (ColumnDescriptor, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}

	return ColumnDescriptor{}, false
}

// IntentType classifies the goal of a natural-language request
type IntentType string

const (
	IntentCount   IntentType = "count"
	IntentSum     IntentType = "sum"
	IntentAverage IntentType = "average"
	IntentMax     IntentType = "max"
	IntentMin     IntentType = "min"
	IntentList    IntentType = "list"
	IntentFilter  IntentType = "filter"
	IntentUnknown IntentType = "unknown"
)

// IsAggregation reports whether the intent implies an aggregate function
func (t IntentType) IsAggregation() bool {
	switch t {
	case IntentCount, IntentSum, IntentAverage, IntentMax, IntentMin:
		return true
	default:
		return false
	}
}

// ComplexityLevel is the upstream engine's declared complexity of the request
type ComplexityLevel string

const (
	ComplexitySimple      ComplexityLevel = "simple"
	ComplexityModerate    ComplexityLevel = "moderate"
	ComplexityComplex     ComplexityLevel = "complex"
	ComplexityVeryComplex ComplexityLevel = "very_complex"
)

// QueryIntent is the structured classification of a natural-language request,
// produced by the (external) intent engine and consumed read-only here.
type QueryIntent struct {
	Type            IntentType      `json:"intent_type"`
	Confidence      float64         `json:"confidence"`
	Entities        []Entity        `json:"entities,omitempty"`
	TemporalContext string          `json:"temporal_context,omitempty"`
	AggregationHint string          `json:"aggregation_hint,omitempty"`
	ComplexityLevel ComplexityLevel `json:"complexity_level"`
	OriginalText    string          `json:"original_text"`
	QueryVector     []float32       `json:"query_vector,omitempty"`
}

// Entity is a named value extracted from the request text
type Entity struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Confidence    float64 `json:"confidence"`
	SchemaMapping string  `json:"schema_mapping,omitempty"`
}

// PersonEntities returns entities that look like person references
func (q QueryIntent) PersonEntities() []Entity {
	var people []Entity

	for _, e := range q.Entities {
		if e.Type == "person" || e.Type == "name" {
			people = append(people, e)
		}
	}

	return people
}
