package knowledge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementIDDeterministic(t *testing.T) {
	id := ElementID(ElementTable, "HR", "Employee")

	assert.Equal(t, "table:hr:employee", id)
	assert.Equal(t, id, ElementID(ElementTable, "hr", "EMPLOYEE"))
	assert.NotEqual(t, id, ElementID(ElementColumn, "hr", "Employee"))
}

func TestDescribeElementTable(t *testing.T) {
	e := &Element{
		Type: ElementTable,
		Name: "Employee",
		Metadata: map[string]string{
			"description":    "company employees",
			"columns":        "EmployeeID,EmployeeName,Salary",
			"related_tables": "hr.Timesheet",
		},
		BusinessContext: map[string]string{"domain": "human resources"},
	}

	text := describeElement(e)

	assert.Contains(t, text, "table Employee")
	assert.Contains(t, text, "company employees")
	assert.Contains(t, text, "domain human resources")
	assert.Contains(t, text, "columns EmployeeID EmployeeName Salary")
	assert.Contains(t, text, "related to hr.Timesheet")
}

func TestDescribeElementTruncatesWideTables(t *testing.T) {
	names := make([]string, 0, 15)
	for i := 1; i <= 15; i++ {
		names = append(names, fmt.Sprintf("col%d", i))
	}

	e := &Element{
		Type:     ElementTable,
		Name:     "Wide",
		Metadata: map[string]string{"columns": strings.Join(names, ",")},
	}

	text := describeElement(e)

	assert.Contains(t, text, "col10")
	assert.NotContains(t, text, "col11")
}

func TestDescribeElementColumn(t *testing.T) {
	e := &Element{
		Type: ElementColumn,
		Name: "Employee.Salary",
		Metadata: map[string]string{
			"data_type":   "decimal",
			"description": "annual salary",
			"table":       "hr.Employee",
		},
	}

	text := describeElement(e)

	assert.Contains(t, text, "column Employee.Salary")
	assert.Contains(t, text, "of type decimal")
	assert.Contains(t, text, "annual salary")
	assert.Contains(t, text, "in table hr.Employee")
}

func TestHasTagCaseInsensitive(t *testing.T) {
	e := &Element{SemanticTags: []string{"Primary", "hr"}}

	assert.True(t, e.hasTag("primary"))
	assert.True(t, e.hasTag("HR"))
	assert.False(t, e.hasTag("secondary"))
}

func TestCloneIsolatesCallers(t *testing.T) {
	original := &Element{
		ID:           "table:hr:employee",
		Embedding:    []float32{1, 2, 3},
		Metadata:     map[string]string{"k": "v"},
		SemanticTags: []string{"primary"},
	}

	copied := original.clone()
	copied.Embedding[0] = 9
	copied.Metadata["k"] = "changed"
	copied.SemanticTags[0] = "changed"

	assert.Equal(t, float32(1), original.Embedding[0])
	assert.Equal(t, "v", original.Metadata["k"])
	assert.Equal(t, "primary", original.SemanticTags[0])
}
