package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Store     StoreConfig     `json:"store"`
	Embedding EmbeddingConfig `json:"embedding"`
	Scoring   ScoringConfig   `json:"scoring"`
	Synthesis SynthesisConfig `json:"synthesis"`
	Logging   LoggingConfig   `json:"logging"`
}

// StoreConfig represents knowledge store configuration
type StoreConfig struct {
	Path            string `json:"path"             env:"STORE_PATH"             envDefault:"~/.config/synthql/knowledge.json"`
	Dimensions      int    `json:"dimensions"       env:"STORE_DIMENSIONS"       envDefault:"384"`
	OverfetchFactor int    `json:"overfetch_factor" env:"STORE_OVERFETCH_FACTOR" envDefault:"2"`
}

// EmbeddingConfig represents embedding provider configuration
type EmbeddingConfig struct {
	Provider   string `json:"provider"   env:"EMBEDDING_PROVIDER"   envDefault:"local"`
	Model      string `json:"model"      env:"EMBEDDING_MODEL"      envDefault:"sentence-transformers/all-MiniLM-L6-v2"`
	Dimensions int    `json:"dimensions" env:"EMBEDDING_DIMENSIONS" envDefault:"384"`
	Timeout    string `json:"timeout"    env:"EMBEDDING_TIMEOUT"    envDefault:"30s"`
	Enabled    bool   `json:"enabled"    env:"EMBEDDING_ENABLED"    envDefault:"true"`
}

// ScoringConfig holds the composite ranking weights used by the knowledge store.
// Defaults match the documented table ranking (similarity/context/business) and
// column ranking (similarity/context) splits.
type ScoringConfig struct {
	TableSimilarityWeight  float64 `json:"table_similarity_weight"  env:"SCORE_TABLE_SIMILARITY"  envDefault:"0.5"`
	TableContextWeight     float64 `json:"table_context_weight"     env:"SCORE_TABLE_CONTEXT"     envDefault:"0.3"`
	TableBusinessWeight    float64 `json:"table_business_weight"    env:"SCORE_TABLE_BUSINESS"    envDefault:"0.2"`
	ColumnSimilarityWeight float64 `json:"column_similarity_weight" env:"SCORE_COLUMN_SIMILARITY" envDefault:"0.7"`
	ColumnContextWeight    float64 `json:"column_context_weight"    env:"SCORE_COLUMN_CONTEXT"    envDefault:"0.3"`
	UsageFrequencyFloor    float64 `json:"usage_frequency_floor"    env:"SCORE_USAGE_FLOOR"       envDefault:"0.7"`
}

// SynthesisConfig holds query synthesis engine tuning values
type SynthesisConfig struct {
	SemanticWeight         float64 `json:"semantic_weight"          env:"SYNTH_SEMANTIC_WEIGHT"     envDefault:"0.6"`
	KeywordWeight          float64 `json:"keyword_weight"           env:"SYNTH_KEYWORD_WEIGHT"      envDefault:"0.4"`
	IntentConfidenceWeight float64 `json:"intent_confidence_weight" env:"SYNTH_INTENT_WEIGHT"       envDefault:"0.2"`
	ComplexPenalty         float64 `json:"complex_penalty"          env:"SYNTH_COMPLEX_PENALTY"     envDefault:"0.1"`
	VeryComplexPenalty     float64 `json:"very_complex_penalty"     env:"SYNTH_VERY_COMPLEX_PENALTY" envDefault:"0.2"`
	MinConfidence          float64 `json:"min_confidence"           env:"SYNTH_MIN_CONFIDENCE"      envDefault:"0.2"`
	MaxListColumns         int     `json:"max_list_columns"         env:"SYNTH_MAX_LIST_COLUMNS"    envDefault:"3"`
	MaxTables              int     `json:"max_tables"               env:"SYNTH_MAX_TABLES"          envDefault:"2"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level     string `json:"level"      env:"LOG_LEVEL"      envDefault:"info"`   // debug, info, warn, error
	Format    string `json:"format"     env:"LOG_FORMAT"     envDefault:"text"`   // text, json
	Output    string `json:"output"     env:"LOG_OUTPUT"     envDefault:"stderr"` // stdout, stderr, file
	File      string `json:"file"       env:"LOG_FILE"       envDefault:"~/.config/synthql/logs/synthql.log"`
	AddSource bool   `json:"add_source" env:"LOG_ADD_SOURCE" envDefault:"false"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides (also sets defaults)
	if err := env.ParseWithOptions(config, env.Options{
		Prefix: "SYNTHQL_",
	}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "store-path":
			if str, ok := value.(string); ok && str != "" {
				config.Store.Path = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "embedding-provider":
			if str, ok := value.(string); ok && str != "" {
				config.Embedding.Provider = str
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	if _, err := time.ParseDuration(config.Embedding.Timeout); err != nil {
		return fmt.Errorf("invalid embedding timeout: %s", config.Embedding.Timeout)
	}

	if config.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive: %d", config.Embedding.Dimensions)
	}

	if config.Store.OverfetchFactor < 2 {
		return fmt.Errorf(
			"store overfetch factor must be at least 2: %d",
			config.Store.OverfetchFactor,
		)
	}

	for name, w := range map[string]float64{
		"table_similarity_weight":  config.Scoring.TableSimilarityWeight,
		"table_context_weight":     config.Scoring.TableContextWeight,
		"table_business_weight":    config.Scoring.TableBusinessWeight,
		"column_similarity_weight": config.Scoring.ColumnSimilarityWeight,
		"column_context_weight":    config.Scoring.ColumnContextWeight,
		"semantic_weight":          config.Synthesis.SemanticWeight,
		"keyword_weight":           config.Synthesis.KeywordWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("scoring weight %s must be in [0,1]: %f", name, w)
		}
	}

	return nil
}

// EmbeddingTimeout returns the parsed embedding timeout duration
func (c *Config) EmbeddingTimeout() time.Duration {
	d, err := time.ParseDuration(c.Embedding.Timeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("SYNTHQL_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "synthql", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Store.Path = expandPath(c.Store.Path)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/synthql"
	}

	return filepath.Join(homeDir, ".config", "synthql")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Store.Path),
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
