package testutil

import "github.com/synthql/synthql/internal/schema"

// SampleHRSchema returns the small human-resources schema most tests ingest.
// Timesheet declares an explicit foreign key to Employee; its ProjectID
// column is left undeclared so relationship inference has something to find.
func SampleHRSchema() []schema.TableDescriptor {
	return []schema.TableDescriptor{
		{
			Schema:      "hr",
			Name:        "Employee",
			Description: "Company employees with their department and salary",
			Columns: []schema.ColumnDescriptor{
				{Name: "EmployeeID", Type: "integer", PrimaryKey: true},
				{Name: "EmployeeName", Type: "varchar", Description: "Full display name"},
				{Name: "DepartmentName", Type: "varchar", Description: "Department the employee belongs to"},
				{Name: "Salary", Type: "decimal", Description: "Annual salary"},
				{Name: "HireDate", Type: "date"},
			},
			PrimaryKeys: []string{"EmployeeID"},
		},
		{
			Schema:      "hr",
			Name:        "Project",
			Description: "Tracked projects with budgets and start dates",
			Columns: []schema.ColumnDescriptor{
				{Name: "ProjectID", Type: "integer", PrimaryKey: true},
				{Name: "ProjectName", Type: "varchar"},
				{Name: "StartDate", Type: "date"},
				{Name: "Budget", Type: "decimal"},
			},
			PrimaryKeys: []string{"ProjectID"},
		},
		{
			Schema:      "hr",
			Name:        "Timesheet",
			Description: "Hours logged by employees against projects",
			Columns: []schema.ColumnDescriptor{
				{Name: "TimesheetID", Type: "integer", PrimaryKey: true},
				{Name: "EmployeeID", Type: "integer"},
				{Name: "ProjectID", Type: "integer"},
				{Name: "TotalHours", Type: "decimal", Description: "Hours worked"},
				{Name: "BillableStatus", Type: "varchar"},
				{Name: "WorkDate", Type: "date"},
			},
			Relationships: []schema.RelationshipDescriptor{
				{SourceColumn: "EmployeeID", TargetTable: "hr.Employee", TargetColumn: "EmployeeID"},
			},
			PrimaryKeys: []string{"TimesheetID"},
		},
	}
}

// Intent builds a QueryIntent for the text with sensible defaults for tests
// that do not care about every field.
func Intent(text string, intentType schema.IntentType) schema.QueryIntent {
	return schema.QueryIntent{
		Type:            intentType,
		Confidence:      0.9,
		ComplexityLevel: schema.ComplexityModerate,
		OriginalText:    text,
	}
}
