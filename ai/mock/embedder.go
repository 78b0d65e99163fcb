package mock

import (
	"context"
	"hash/fnv"
)

// mockDim is the dimensionality of vectors the default behavior emits.
// It matches the smaller sentence-transformer models so fixtures stay cheap.
const mockDim = 384

// MockEmbedder is a test double for ai.Embedder. By default it hashes the
// input text into a repeatable unit vector, so equal texts always land on
// equal embeddings and similarity assertions stay stable across runs.
// Tests that need failures or canned vectors inject the function fields.
type MockEmbedder struct {
	// EmbedTextFunc, when set, replaces the default single-text behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc, when set, replaces the default batch behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	callCount int
}

// NewMockEmbedder creates a mock embedder with the hash-based default
// behavior. The concrete type is returned so tests can inspect it.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedText embeds a single text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount++

	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}

	return hashVector(text), nil
}

// EmbedTexts embeds a batch of texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.callCount++

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text)
	}
	return vectors, nil
}

// CallCount returns how many times either embed method was invoked.
func (m *MockEmbedder) CallCount() int {
	return m.callCount
}

// Reset clears the call count and any injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// hashVector expands the FNV hash of text into a normalized vector via a
// linear congruential generator. Same text, same vector, every run.
func hashVector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	state := h.Sum32()

	vector := make([]float32, mockDim)
	for i := range vector {
		state = state*1664525 + 1013904223
		vector[i] = float32(state%1000) / 1000.0
	}

	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		inv := float32(1.0) / sumSquares
		for i := range vector {
			vector[i] *= inv
		}
	}

	return vector
}
