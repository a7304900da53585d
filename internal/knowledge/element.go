package knowledge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/synthql/synthql/internal/schema"
)

// ElementType identifies the kind of schema element behind a vector record
type ElementType string

const (
	ElementTable        ElementType = "table"
	ElementColumn       ElementType = "column"
	ElementRelationship ElementType = "relationship"
	ElementPattern      ElementType = "pattern"
)

// maxColumnsInDescription caps how many column names contribute to a table's
// description text so wide tables don't drown the table name itself.
const maxColumnsInDescription = 10

// Element is one vector record in the knowledge store: a table, column,
// relationship, or learned query pattern together with its embedding and
// free-form annotations.
type Element struct {
	ID              string            `json:"element_id"`
	Type            ElementType       `json:"element_type"`
	SchemaName      string            `json:"schema_name"`
	Name            string            `json:"element_name"`
	Embedding       []float32         `json:"embedding"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	SemanticTags    []string          `json:"semantic_tags,omitempty"`
	BusinessContext map[string]string `json:"business_context,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ElementID derives the deterministic identifier for a schema element.
// The same (type, schema, name) triple always maps to the same id, which is
// what makes Store an idempotent upsert.
func ElementID(elementType ElementType, schemaName, name string) string {
	return strings.ToLower(fmt.Sprintf("%s:%s:%s", elementType, schemaName, name))
}

// clone returns a deep copy so callers can't mutate store-owned state
func (e *Element) clone() *Element {
	out := *e

	out.Embedding = append([]float32(nil), e.Embedding...)
	out.SemanticTags = append([]string(nil), e.SemanticTags...)

	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}

	if e.BusinessContext != nil {
		out.BusinessContext = make(map[string]string, len(e.BusinessContext))
		for k, v := range e.BusinessContext {
			out.BusinessContext[k] = v
		}
	}

	return &out
}

// hasTag reports whether the element carries the given semantic tag
func (e *Element) hasTag(tag string) bool {
	for _, t := range e.SemanticTags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}

	return false
}

// describeElement reconstructs the description text an element is embedded
// from. Tables lead with their name, description, and business context, then
// up to ten column names and any related tables; columns lead with name, data
// type, description, and owning table. The same rules run on first insert and
// on metadata updates so re-embedding stays consistent.
func describeElement(e *Element) string {
	var parts []string

	switch e.Type {
	case ElementTable:
		parts = append(parts, "table "+e.Name)

		if desc := e.Metadata["description"]; desc != "" {
			parts = append(parts, desc)
		}

		parts = append(parts, businessContextText(e.BusinessContext)...)

		if cols := e.Metadata["columns"]; cols != "" {
			names := strings.Split(cols, ",")
			if len(names) > maxColumnsInDescription {
				names = names[:maxColumnsInDescription]
			}

			parts = append(parts, "columns "+strings.Join(names, " "))
		}

		if related := e.Metadata["related_tables"]; related != "" {
			parts = append(parts, "related to "+strings.ReplaceAll(related, ",", " "))
		}
	case ElementColumn:
		parts = append(parts, "column "+e.Name)

		if dataType := e.Metadata["data_type"]; dataType != "" {
			parts = append(parts, "of type "+dataType)
		}

		if desc := e.Metadata["description"]; desc != "" {
			parts = append(parts, desc)
		}

		if table := e.Metadata["table"]; table != "" {
			parts = append(parts, "in table "+table)
		}
	case ElementRelationship:
		parts = append(parts, "relationship "+e.Name)

		if desc := e.Metadata["description"]; desc != "" {
			parts = append(parts, desc)
		}
	case ElementPattern:
		parts = append(parts, e.Metadata["natural_language"])

		if sql := e.Metadata["sql"]; sql != "" {
			parts = append(parts, sql)
		}
	}

	return strings.TrimSpace(strings.Join(parts, ". "))
}

// businessContextText flattens business context into stable description parts
func businessContextText(ctx map[string]string) []string {
	if len(ctx) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+ctx[k])
	}

	return parts
}

// tableMetadata builds the metadata map stored with a table element
func tableMetadata(table schema.TableDescriptor, relatedTables []string) map[string]string {
	names := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		names = append(names, col.Name)
	}

	meta := map[string]string{
		"description":  table.Description,
		"columns":      strings.Join(names, ","),
		"column_count": fmt.Sprintf("%d", len(table.Columns)),
	}

	if len(relatedTables) > 0 {
		meta["related_tables"] = strings.Join(relatedTables, ",")
	}

	if len(table.PrimaryKeys) > 0 {
		meta["primary_keys"] = strings.Join(table.PrimaryKeys, ",")
	}

	return meta
}

// columnMetadata builds the metadata map stored with a column element
func columnMetadata(table schema.TableDescriptor, col schema.ColumnDescriptor) map[string]string {
	meta := map[string]string{
		"data_type": col.Type,
		"table":     table.QualifiedName(),
	}

	if col.Description != "" {
		meta["description"] = col.Description
	}

	if col.Nullable {
		meta["nullable"] = "true"
	}

	if col.PrimaryKey {
		meta["primary_key"] = "true"
	}

	return meta
}
