package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateConfig points the config file lookup at an empty temp location so
// tests never read the developer's real configuration.
func isolateConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("SYNTHQL_CONFIG", path)

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 384, cfg.Store.Dimensions)
	assert.Equal(t, 2, cfg.Store.OverfetchFactor)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, "30s", cfg.Embedding.Timeout)

	assert.InDelta(t, 0.5, cfg.Scoring.TableSimilarityWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Scoring.TableContextWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Scoring.TableBusinessWeight, 1e-9)
	assert.InDelta(t, 0.7, cfg.Scoring.ColumnSimilarityWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Scoring.ColumnContextWeight, 1e-9)

	assert.InDelta(t, 0.6, cfg.Synthesis.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Synthesis.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.2, cfg.Synthesis.IntentConfidenceWeight, 1e-9)
	assert.Equal(t, 3, cfg.Synthesis.MaxListColumns)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	isolateConfig(t)
	t.Setenv("SYNTHQL_STORE_DIMENSIONS", "128")
	t.Setenv("SYNTHQL_SYNTH_MAX_TABLES", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Store.Dimensions)
	assert.Equal(t, 3, cfg.Synthesis.MaxTables)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	fileConfig := map[string]any{
		"store":   map[string]any{"dimensions": 256},
		"logging": map[string]any{"level": "debug"},
	}

	data, err := json.Marshal(fileConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg := &Config{Store: StoreConfig{OverfetchFactor: 2}}
	require.NoError(t, loadConfigFromFile(cfg, path))

	assert.Equal(t, 256, cfg.Store.Dimensions)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Values absent from the file are left alone
	assert.Equal(t, 2, cfg.Store.OverfetchFactor)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	err := loadConfigFromFile(&Config{}, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	isolateConfig(t)

	cfg, err := LoadConfigWithOverrides(map[string]interface{}{
		"store-path": "/tmp/custom.json",
		"log-level":  "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/custom.json", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid log level", "SYNTHQL_LOG_LEVEL", "verbose"},
		{"invalid log format", "SYNTHQL_LOG_FORMAT", "xml"},
		{"invalid timeout", "SYNTHQL_EMBEDDING_TIMEOUT", "soon"},
		{"overfetch too small", "SYNTHQL_STORE_OVERFETCH_FACTOR", "1"},
		{"weight out of range", "SYNTHQL_SCORE_TABLE_SIMILARITY", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfig(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestEmbeddingTimeout(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Timeout: "45s"}}
	assert.Equal(t, 45*time.Second, cfg.EmbeddingTimeout())

	broken := &Config{Embedding: EmbeddingConfig{Timeout: "bogus"}}
	assert.Equal(t, 30*time.Second, broken.EmbeddingTimeout())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, home, expandPath("~"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()

	cfg := &Config{
		Store:   StoreConfig{Path: filepath.Join(dir, "store", "knowledge.json")},
		Logging: LoggingConfig{File: filepath.Join(dir, "logs", "synthql.log")},
	}

	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, filepath.Join(dir, "store"))
	assert.DirExists(t, filepath.Join(dir, "logs"))
}
