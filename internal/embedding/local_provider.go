package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/synthql/synthql/internal/config"
)

// LocalProvider implements embedding generation using a local Python script
type LocalProvider struct {
	model      string
	pythonPath string
	scriptPath string
	dimensions int
}

// embeddingResult represents the JSON response from embed.py
type embeddingResult struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
}

// NewLocalProvider creates a new local embedding provider
func NewLocalProvider(cfg config.EmbeddingConfig) (*LocalProvider, error) {
	pythonPath, err := exec.LookPath("python3")
	if err != nil {
		pythonPath, err = exec.LookPath("python")
		if err != nil {
			return nil, fmt.Errorf("python not found in PATH: %w", err)
		}
	}

	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("failed to determine script path")
	}

	// Go up from internal/embedding/ to project root, then to scripts/
	projectRoot := filepath.Join(filepath.Dir(currentFile), "..", "..")
	scriptPath := filepath.Join(projectRoot, "scripts", "embed.py")

	return &LocalProvider{
		model:      cfg.Model,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed generates an embedding for the given text. The caller is expected to
// supply a context with a deadline; see Manager.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, p.dimensions), nil
	}

	inputJSON, err := json.Marshal([]string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	cmd := exec.CommandContext(
		ctx,
		p.pythonPath,
		p.scriptPath,
		"--model", p.model,
		"--stdin",
	)

	cmd.Stdin = bytes.NewReader(inputJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, fmt.Errorf("embedding generation failed: %w (stderr: %s)", err, stderr.String())
	}

	var result embeddingResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding result: %w", err)
	}

	if len(result.Embeddings) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(result.Embeddings))
	}

	if result.Dimension != p.dimensions {
		return nil, fmt.Errorf("dimension mismatch: expected %d, got %d", p.dimensions, result.Dimension)
	}

	embedding := make([]float32, len(result.Embeddings[0]))
	for i, v := range result.Embeddings[0] {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

// Dimensions returns the dimensionality of embeddings produced by this provider
func (p *LocalProvider) Dimensions() int {
	return p.dimensions
}

// Name returns the provider name for identification
func (p *LocalProvider) Name() string {
	return fmt.Sprintf("local:%s", p.model)
}
