package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic in-process embedding provider for tests.
// Each token is hashed into a fixed-size bag-of-words vector, so identical
// text always produces identical vectors and texts sharing tokens land close
// together in the space. No model, no subprocess, no network.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a deterministic embedder with the given
// dimensionality.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 64
	}

	return &HashEmbedder{dims: dims}
}

// Embed produces a unit-length bag-of-words vector for the text
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)

	for _, token := range tokenize(text) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))

		vec[int(hasher.Sum32())%h.dims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec, nil
}

// Dimensions returns the configured vector size
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Name identifies the provider in logs
func (h *HashEmbedder) Name() string {
	return "hash"
}

// tokenize lowercases and splits on non-alphanumeric characters and camelCase
// boundaries, trimming a naive plural suffix so "employees" and "EmployeeID"
// share the "employee" token.
func tokenize(text string) []string {
	var tokens []string

	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}

		token := strings.ToLower(current.String())
		if len(token) > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
			token = strings.TrimSuffix(token, "s")
		}

		tokens = append(tokens, token)
		current.Reset()
	}

	var prev rune

	for _, r := range text {
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush()
			current.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}

		prev = r
	}

	flush()

	return tokens
}
