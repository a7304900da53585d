package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/synthql/synthql/internal/errors"
	"github.com/synthql/synthql/internal/logging"
	"github.com/synthql/synthql/internal/schema"
	"github.com/synthql/synthql/internal/synthesis"
)

var (
	queryIntent     string
	queryComplexity string
	queryEntities   []string
	queryExplain    bool
)

var queryCmd = &cobra.Command{
	Use:   "query <request>",
	Short: "Synthesize a SQL query from a natural-language request",
	Long: `Synthesize a SQL query against the ingested schema. The request text is
embedded and matched against stored schema elements; deterministic pattern
rules run first and generic vector-ranked assembly is the fallback.

Examples:
  synthql query "How many employees are there?"
  synthql query "Show total hours by project"
  synthql query --intent average "average salary per department"
  synthql query --entity "John Smith:person" "hours worked by John Smith"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryIntent, "intent", "auto",
		"Intent type: auto, count, sum, average, max, min, list, filter")
	queryCmd.Flags().StringVar(&queryComplexity, "complexity", "moderate",
		"Declared complexity: simple, moderate, complex, very_complex")
	queryCmd.Flags().StringArrayVar(&queryEntities, "entity", nil,
		"Extracted entity as name:type (repeatable)")
	queryCmd.Flags().BoolVar(&queryExplain, "explain", false,
		"Show per-clause confidence breakdown")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.GetLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	request := strings.TrimSpace(args[0])
	if len(request) < 2 {
		return errors.New(errors.ErrTypeValidation,
			"request must be at least 2 characters long")
	}

	intent, err := buildIntent(request)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	vec, err := store.EmbedText(ctx, request)
	if err != nil {
		return err
	}

	intent.QueryVector = vec

	logger.Debugf("synthesizing for intent %s over %d tables",
		intent.Type, store.GetStats().TableCount)

	engine := synthesis.NewEngine(store, cfg.Synthesis, logger)

	result, err := engine.Synthesize(ctx, intent)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeSynthesis) {
			return errors.New(errors.ErrTypeSynthesis,
				"no confident query could be synthesized for this request").
				WithSuggestion("Rephrase the request using table or column names from the schema").
				WithSuggestion("Run 'synthql stats' to see what has been ingested")
		}

		return err
	}

	displayQuery(result)

	// Successful pairs feed future retrieval; persistence failures only warn
	store.RecordPattern(ctx, request, result.SQL, true)

	if err := store.Save(); err != nil {
		logger.WithError(err).Warn("failed to persist learned pattern")
	}

	return nil
}

// buildIntent assembles the QueryIntent from flags, inferring the intent type
// from the text when --intent is auto.
func buildIntent(request string) (schema.QueryIntent, error) {
	intentType := schema.IntentType(queryIntent)
	if queryIntent == "auto" {
		intentType = inferIntent(request)
	}

	switch intentType {
	case schema.IntentCount, schema.IntentSum, schema.IntentAverage,
		schema.IntentMax, schema.IntentMin, schema.IntentList,
		schema.IntentFilter, schema.IntentUnknown:
	default:
		return schema.QueryIntent{}, errors.Newf(errors.ErrTypeValidation,
			"invalid intent type %q", queryIntent)
	}

	complexity := schema.ComplexityLevel(queryComplexity)

	switch complexity {
	case schema.ComplexitySimple, schema.ComplexityModerate,
		schema.ComplexityComplex, schema.ComplexityVeryComplex:
	default:
		return schema.QueryIntent{}, errors.Newf(errors.ErrTypeValidation,
			"invalid complexity level %q", queryComplexity)
	}

	intent := schema.QueryIntent{
		Type:            intentType,
		Confidence:      0.8,
		ComplexityLevel: complexity,
		OriginalText:    request,
	}

	for _, raw := range queryEntities {
		name, entityType, found := strings.Cut(raw, ":")
		if !found {
			entityType = "name"
		}

		if name == "" {
			return schema.QueryIntent{}, errors.Newf(errors.ErrTypeValidation,
				"invalid entity %q, expected name:type", raw)
		}

		intent.Entities = append(intent.Entities, schema.Entity{
			Name:       name,
			Type:       entityType,
			Confidence: 1.0,
		})
	}

	return intent, nil
}

// inferIntent guesses the intent type from common phrasing
func inferIntent(request string) schema.IntentType {
	lower := strings.ToLower(request)

	switch {
	case strings.Contains(lower, "how many") || strings.Contains(lower, "count"):
		return schema.IntentCount
	case strings.Contains(lower, "total") || strings.Contains(lower, "sum"):
		return schema.IntentSum
	case strings.Contains(lower, "average") || strings.Contains(lower, "mean"):
		return schema.IntentAverage
	case strings.Contains(lower, "highest") || strings.Contains(lower, "maximum") ||
		strings.Contains(lower, "most"):
		return schema.IntentMax
	case strings.Contains(lower, "lowest") || strings.Contains(lower, "minimum") ||
		strings.Contains(lower, "least"):
		return schema.IntentMin
	default:
		return schema.IntentList
	}
}

// displayQuery prints the synthesized query with its provenance
func displayQuery(result *synthesis.Query) {
	fmt.Println(result.SQL)
	fmt.Println()
	fmt.Printf("Confidence: %.2f  Complexity: %.2f  Strategy: %s\n",
		result.Confidence, result.Complexity, result.Strategy)
	fmt.Printf("Tables: %s\n", strings.Join(result.Tables, ", "))

	if len(result.Joins) > 0 {
		fmt.Printf("Joins: %s\n", strings.Join(result.Joins, "; "))
	}

	if queryExplain {
		fmt.Println("\nClauses:")

		for _, clause := range result.Clauses() {
			fmt.Printf("  %-9s %.2f  %s\n", clause.Kind, clause.Confidence, clause.Text)
		}
	}
}
