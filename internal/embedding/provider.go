package embedding

import (
	"context"
	"time"

	"github.com/synthql/synthql/internal/config"
	"github.com/synthql/synthql/internal/errors"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// Embed generates an embedding for the given text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of embeddings produced by this provider
	Dimensions() int

	// Name returns the provider name for identification
	Name() string
}

// Manager wraps a provider with the configured call timeout. The embedding
// service is the only blocking dependency of the core, so every call goes
// through a cancellable deadline.
type Manager struct {
	provider Provider
	timeout  time.Duration
}

// NewManager creates a new embedding manager from configuration
func NewManager(cfg config.EmbeddingConfig) (*Manager, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "invalid embedding timeout %q", cfg.Timeout)
	}

	if !cfg.Enabled {
		return &Manager{provider: &DisabledProvider{}, timeout: timeout}, nil
	}

	var provider Provider

	switch cfg.Provider {
	case "local":
		provider, err = NewLocalProvider(cfg)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "failed to initialize embedding provider")
	}

	if provider.Dimensions() != cfg.Dimensions {
		return nil, errors.Newf(errors.ErrTypeConfig,
			"dimension mismatch: expected %d, got %d", cfg.Dimensions, provider.Dimensions())
	}

	return &Manager{provider: provider, timeout: timeout}, nil
}

// NewManagerWithProvider wraps an existing provider, mostly for tests
func NewManagerWithProvider(provider Provider, timeout time.Duration) *Manager {
	return &Manager{provider: provider, timeout: timeout}
}

// Embed generates an embedding using the configured provider under the call timeout
func (m *Manager) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	vec, err := m.provider.Embed(ctx, text)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrapf(err, errors.ErrTypeEmbedding,
				"embedding generation timed out after %v", m.timeout)
		}

		return nil, errors.Wrap(err, errors.ErrTypeEmbedding, "embedding generation failed")
	}

	return vec, nil
}

// Dimensions returns the embedding dimensions
func (m *Manager) Dimensions() int {
	return m.provider.Dimensions()
}

// Name returns the wrapped provider name
func (m *Manager) Name() string {
	return m.provider.Name()
}

// DisabledProvider is a no-op provider for when embeddings are disabled
type DisabledProvider struct{}

func (p *DisabledProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New(errors.ErrTypeEmbedding, "embedding provider is disabled")
}

func (p *DisabledProvider) Dimensions() int {
	return 0
}

func (p *DisabledProvider) Name() string {
	return "disabled"
}
