// Package embedder turns chunk text into dense vectors via an embedding
// backend. The Ollama implementation is the default; the interface exists
// so the index builder and retriever can be tested without a model server.
package embedder

import (
	"context"
	"math"
)

// Embedder produces dense vectors for text.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle embeds a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Model returns the backing model name.
	Model() string
	// Dimension returns the vector dimension the model produces.
	Dimension() int
}

// Normalize scales v to unit length in place and returns it. Zero vectors
// are returned unchanged. Cosine distance over unit vectors keeps the
// vector index metric consistent regardless of the model's output scale.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
