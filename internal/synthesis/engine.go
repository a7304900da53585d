package synthesis

import (
	"context"
	"strings"

	"github.com/synthql/synthql/internal/config"
	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/knowledge"
	"github.com/synthql/synthql/internal/logging"
	"github.com/synthql/synthql/internal/schema"
)

// candidateTableCount is how many table candidates the engine considers per
// synthesis before hybrid re-ranking.
const candidateTableCount = 5

// KnowledgeBase is the read-only store surface the engine depends on
type KnowledgeBase interface {
	FindSimilarTables(queryVec []float32, k int) []knowledge.TableMatch
	FindSimilarColumns(queryVec []float32, tableContext string, k int) []knowledge.ColumnMatch
	RelationshipContext(tableNames []string) *knowledge.Graph
	Table(qualified string) (schema.TableDescriptor, bool)
}

// Engine synthesizes a structured query from an intent and the knowledge
// store. It holds no state across calls beyond its read-only store handle.
type Engine struct {
	kb     KnowledgeBase
	cfg    config.SynthesisConfig
	logger *logging.Logger
}

// NewEngine creates a query synthesis engine
func NewEngine(kb KnowledgeBase, cfg config.SynthesisConfig, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetLogger()
	}

	return &Engine{kb: kb, cfg: cfg, logger: logger}
}

// Synthesize assembles a query for the intent. The deterministic pattern
// rules run first; generic vector-ranked assembly is the fallback. When
// neither produces a confident query the result is ErrNoResult, never a
// plausible-looking guess.
func (e *Engine) Synthesize(ctx context.Context, intent schema.QueryIntent) (*Query, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(intent.QueryVector) == 0 {
		return nil, errors.New(errors.ErrTypeValidation, "intent carries no query vector")
	}

	candidates := e.kb.FindSimilarTables(intent.QueryVector, candidateTableCount)
	if len(candidates) == 0 {
		e.logger.Debug("no table candidates for intent, yielding no result")
		return nil, ErrNoResult
	}

	view, ok := e.selectBestTable(intent, candidates)
	if !ok {
		return nil, ErrNoResult
	}

	pctx := &patternContext{
		intent: intent,
		text:   strings.ToLower(intent.OriginalText),
		view:   view,
		engine: e,
	}

	for _, rule := range patternRules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !rule.applies(pctx) {
			continue
		}

		if d, ok := rule.build(pctx); ok {
			e.logger.Debugf("pattern rule %q matched table %s", rule.name, view.qualified())

			return e.finalize(d, intent, "pattern:"+rule.name)
		}
	}

	if d, ok := e.assembleFallback(intent, view, candidates); ok {
		return e.finalize(d, intent, "vector_assembly")
	}

	return nil, ErrNoResult
}

// selectBestTable re-ranks table candidates by the hybrid score
// semantic + keyword. Ties break on raw similarity, then on qualified name
// so the choice is deterministic.
func (e *Engine) selectBestTable(
	intent schema.QueryIntent,
	candidates []knowledge.TableMatch,
) (schemaView, bool) {
	var (
		best      schemaView
		bestScore float64
		found     bool
	)

	for _, match := range candidates {
		table, ok := e.kb.Table(match.QualifiedName())
		if !ok {
			continue
		}

		score := e.cfg.SemanticWeight*match.CompositeScore +
			e.cfg.KeywordWeight*keywordScore(intent.OriginalText, table)

		better := score > bestScore

		if score == bestScore && found {
			if match.SimilarityScore > best.match.SimilarityScore {
				better = true
			} else if match.SimilarityScore == best.match.SimilarityScore &&
				match.QualifiedName() < best.qualified() {
				better = true
			}
		}

		if !found || better {
			best = schemaView{match: match, table: table}
			bestScore = score
			found = true
		}
	}

	return best, found
}

// finalize turns a draft into the output query, computing overall confidence
// and the complexity score, and applying the confidence floor.
func (e *Engine) finalize(d *draft, intent schema.QueryIntent, strategy string) (*Query, error) {
	confidence := meanClauseConfidence(d.clauses) +
		e.cfg.IntentConfidenceWeight*intent.Confidence

	switch intent.ComplexityLevel {
	case schema.ComplexityComplex:
		confidence -= e.cfg.ComplexPenalty
	case schema.ComplexityVeryComplex:
		confidence -= e.cfg.VeryComplexPenalty
	}

	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	if confidence < e.cfg.MinConfidence {
		e.logger.Debugf("query confidence %.2f below floor %.2f, yielding no result",
			confidence, e.cfg.MinConfidence)

		return nil, ErrNoResult
	}

	return &Query{
		SQL:        assembleSQL(d.clauses),
		Confidence: confidence,
		Complexity: complexityScore(d.clauses),
		Tables:     d.tables,
		Columns:    d.columns,
		Joins:      d.joins,
		Strategy:   strategy,
		clauses:    d.clauses,
	}, nil
}

// Clauses exposes the constructed clauses for inspection and tests
func (q *Query) Clauses() []Clause {
	return q.clauses
}
