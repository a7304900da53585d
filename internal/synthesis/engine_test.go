package synthesis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthql/synthql/internal/config"
	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/schema"
	"github.com/synthql/synthql/internal/testutil"
)

func testSynthesisConfig() config.SynthesisConfig {
	return config.SynthesisConfig{
		SemanticWeight:         0.6,
		KeywordWeight:          0.4,
		IntentConfidenceWeight: 0.2,
		ComplexPenalty:         0.1,
		VeryComplexPenalty:     0.2,
		MinConfidence:          0.2,
		MaxListColumns:         3,
		MaxTables:              2,
	}
}

func newTestStore(t *testing.T) *knowledge.Store {
	t.Helper()

	cfg := config.StoreConfig{
		Path:            filepath.Join(t.TempDir(), "knowledge.json"),
		Dimensions:      64,
		OverfetchFactor: 2,
	}

	scoring := config.ScoringConfig{
		TableSimilarityWeight:  0.5,
		TableContextWeight:     0.3,
		TableBusinessWeight:    0.2,
		ColumnSimilarityWeight: 0.7,
		ColumnContextWeight:    0.3,
		UsageFrequencyFloor:    0.7,
	}

	return knowledge.NewStore(testutil.NewHashEmbedder(64), cfg, scoring, nil)
}

func newTestEngine(t *testing.T) (*Engine, *knowledge.Store) {
	t.Helper()

	store := newTestStore(t)
	require.NoError(t, store.Ingest(context.Background(), testutil.SampleHRSchema()))

	return NewEngine(store, testSynthesisConfig(), nil), store
}

func embeddedIntent(t *testing.T, store *knowledge.Store, text string, intentType schema.IntentType) schema.QueryIntent {
	t.Helper()

	intent := testutil.Intent(text, intentType)

	vec, err := store.EmbedText(context.Background(), text)
	require.NoError(t, err)

	intent.QueryVector = vec

	return intent
}

func TestSynthesizeCountWithoutGroupingCue(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "How many employees are there?", schema.IntentCount)

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM hr.Employee", query.SQL)
	assert.Equal(t, "pattern:count", query.Strategy)
	assert.Equal(t, []string{"hr.Employee"}, query.Tables)
	assert.Empty(t, query.Joins)
	assert.GreaterOrEqual(t, query.Confidence, 0.2)
	assert.LessOrEqual(t, query.Confidence, 1.0)
}

func TestSynthesizeTotalHoursByProject(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "Show total hours by project", schema.IntentSum)

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, "pattern:aggregate", query.Strategy)
	assert.Contains(t, query.SQL, "SUM(hr.Timesheet.TotalHours)")
	assert.Contains(t, query.SQL, "FROM hr.Timesheet")
	assert.Contains(t, query.SQL, "INNER JOIN hr.Project")
	assert.Contains(t, query.SQL, "GROUP BY hr.Project.ProjectName")
	assert.Equal(t, []string{"hr.Timesheet", "hr.Project"}, query.Tables)

	require.Len(t, query.Joins, 1)
	assert.Equal(t, "hr.Timesheet.ProjectID = hr.Project.ProjectID", query.Joins[0])
}

func TestSynthesizeAverageSalaryPerDepartment(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "average salary per department", schema.IntentAverage)

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Contains(t, query.SQL, "AVG(Salary)")
	assert.Contains(t, query.SQL, "FROM hr.Employee")
	assert.Contains(t, query.SQL, "GROUP BY DepartmentName")
}

func TestSynthesizeRankingWindow(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "Rank employees by highest salary", schema.IntentList)

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, "pattern:ranking", query.Strategy)
	assert.Contains(t, query.SQL, "ROW_NUMBER() OVER (ORDER BY Salary DESC)")
	assert.Contains(t, query.SQL, "EmployeeName")
}

func TestSynthesizeExistenceSubquery(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "show employees without timesheets", schema.IntentList)

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, "pattern:existence_subquery", query.Strategy)
	assert.Contains(t, query.SQL, "WHERE NOT EXISTS (SELECT 1 FROM hr.Timesheet")
	assert.Contains(t, query.SQL, "FROM hr.Employee")
}

func TestSynthesizeListWithPersonEntity(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "list employees", schema.IntentList)
	intent.Entities = []schema.Entity{{Name: "John Smith", Type: "person", Confidence: 1.0}}

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, "pattern:list", query.Strategy)
	assert.Contains(t, query.SQL, "WHERE LOWER(EmployeeName) LIKE '%john smith%'")
}

func TestSynthesizeFallbackAssembly(t *testing.T) {
	engine, store := newTestEngine(t)

	// No pattern trigger word, so the cascade falls through entirely
	intent := embeddedIntent(t, store, "employees earning good money", schema.IntentFilter)

	query, err := engine.Synthesize(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, "vector_assembly", query.Strategy)
	assert.Contains(t, query.SQL, "SELECT")
	assert.Contains(t, query.SQL, "FROM hr.Employee")
	assert.Greater(t, query.Confidence, 0.0)
}

func TestSynthesizeEmptyStore(t *testing.T) {
	store := newTestStore(t)
	engine := NewEngine(store, testSynthesisConfig(), nil)

	intent := testutil.Intent("how many employees", schema.IntentCount)
	intent.QueryVector = make([]float32, 64)
	intent.QueryVector[0] = 1

	_, err := engine.Synthesize(context.Background(), intent)
	require.ErrorIs(t, err, ErrNoResult)
}

func TestSynthesizeMissingQueryVector(t *testing.T) {
	engine, _ := newTestEngine(t)

	intent := testutil.Intent("how many employees", schema.IntentCount)

	_, err := engine.Synthesize(context.Background(), intent)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestSynthesizeComplexityPenalty(t *testing.T) {
	engine, store := newTestEngine(t)

	moderate := embeddedIntent(t, store, "How many employees are there?", schema.IntentCount)

	veryComplex := moderate
	veryComplex.ComplexityLevel = schema.ComplexityVeryComplex

	baseline, err := engine.Synthesize(context.Background(), moderate)
	require.NoError(t, err)

	penalized, err := engine.Synthesize(context.Background(), veryComplex)
	require.NoError(t, err)

	assert.Less(t, penalized.Confidence, baseline.Confidence)
}

func TestSynthesizeConfidenceFloor(t *testing.T) {
	_, store := newTestEngine(t)

	cfg := testSynthesisConfig()
	cfg.MinConfidence = 0.95

	engine := NewEngine(store, cfg, nil)

	intent := embeddedIntent(t, store, "How many employees are there?", schema.IntentCount)
	intent.ComplexityLevel = schema.ComplexityVeryComplex

	_, err := engine.Synthesize(context.Background(), intent)
	require.ErrorIs(t, err, ErrNoResult)
}

func TestSynthesizeCancelledContext(t *testing.T) {
	engine, store := newTestEngine(t)

	intent := embeddedIntent(t, store, "How many employees are there?", schema.IntentCount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Synthesize(ctx, intent)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSynthesizeComplexityScoreGrows(t *testing.T) {
	engine, store := newTestEngine(t)

	simple, err := engine.Synthesize(context.Background(),
		embeddedIntent(t, store, "How many employees are there?", schema.IntentCount))
	require.NoError(t, err)

	joined, err := engine.Synthesize(context.Background(),
		embeddedIntent(t, store, "Show total hours by project", schema.IntentSum))
	require.NoError(t, err)

	assert.Greater(t, joined.Complexity, simple.Complexity)
}
