// Package embedding turns text into fixed-length vectors. Every provider must
// be used identically for indexing and querying, and callers normalize the
// output to unit length before it reaches the index.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// DefaultDimension is the vector size the index is provisioned with.
const DefaultDimension = 384

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// Normalize returns v scaled to unit length. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var magnitude float64
	for _, x := range v {
		magnitude += float64(x) * float64(x)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = float32(float64(x) / magnitude)
	}
	return normalized
}

// PrepareText is the preprocessing applied to every text before it is
// embedded, stored questions and typed queries alike.
func PrepareText(text string) string {
	return strings.TrimSpace(text)
}

// EmbedNormalized prepares and embeds texts and normalizes every vector,
// rejecting vectors whose length differs from the embedder's declared dimension.
func EmbedNormalized(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	prepared := make([]string, len(texts))
	for i, text := range texts {
		prepared[i] = PrepareText(text)
	}

	vectors, err := e.Embed(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder %s returned %d vectors for %d texts", e.ModelName(), len(vectors), len(texts))
	}

	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != e.Dimension() {
			return nil, fmt.Errorf("embedder %s returned dimension %d, expected %d", e.ModelName(), len(v), e.Dimension())
		}
		out[i] = Normalize(v)
	}
	return out, nil
}
