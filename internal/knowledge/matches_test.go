package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "hr.Employee", TableMatch{Schema: "hr", Name: "Employee"}.QualifiedName())
	assert.Equal(t, "Employee", TableMatch{Name: "Employee"}.QualifiedName())
}

func TestBareName(t *testing.T) {
	assert.Equal(t, "Salary", ColumnMatch{Name: "Employee.Salary"}.BareName())
	assert.Equal(t, "Salary", ColumnMatch{Name: "Salary"}.BareName())
}

func TestContextRelevance(t *testing.T) {
	assert.InDelta(t, 0.5, contextRelevance(&Element{}), 1e-9)
	assert.InDelta(t, 0.8, contextRelevance(&Element{SemanticTags: []string{"primary"}}), 1e-9)
	assert.InDelta(t, 0.7, contextRelevance(&Element{SemanticTags: []string{"important"}}), 1e-9)
	assert.InDelta(t, 1.0,
		contextRelevance(&Element{SemanticTags: []string{"primary", "important"}}), 1e-9)
}

func TestBusinessPriority(t *testing.T) {
	tests := []struct {
		name    string
		element *Element
		want    float64
	}{
		{
			name:    "core business noun",
			element: &Element{Name: "Employee"},
			want:    0.9,
		},
		{
			name: "high usage frequency",
			element: &Element{
				Name:     "Ledger",
				Metadata: map[string]string{"usage_frequency": "0.95"},
			},
			want: 0.8,
		},
		{
			name: "usage below floor",
			element: &Element{
				Name:     "Ledger",
				Metadata: map[string]string{"usage_frequency": "0.3"},
			},
			want: 0.5,
		},
		{
			name: "unparseable usage",
			element: &Element{
				Name:     "Ledger",
				Metadata: map[string]string{"usage_frequency": "often"},
			},
			want: 0.5,
		},
		{
			name:    "no signals",
			element: &Element{Name: "Ledger"},
			want:    0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, businessPriority(tt.element, 0.7), 1e-9)
		})
	}
}
