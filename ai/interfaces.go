package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatTurn is one message of an assembled prompt.
type ChatTurn struct {
	// Role is "system", "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Prompt roles accepted by ChatStreamer implementations.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StreamFunc receives one generated fragment. Returning an error stops
// generation; implementations must not call it again afterwards.
type StreamFunc func(ctx context.Context, fragment string) error

// ChatStreamer generates chat completions token by token.
// Implementations must be thread-safe for concurrent use.
type ChatStreamer interface {
	// StreamChat generates a completion for the assembled prompt, invoking fn
	// for every non-empty fragment in generation order. It returns the full
	// concatenated response text. If fn returns an error, generation stops and
	// the fragments delivered so far are still returned alongside the error.
	StreamChat(ctx context.Context, turns []ChatTurn, fn StreamFunc) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and ChatStreamer
// instances, ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// ChatStreamer returns the streaming chat completion service.
	// The returned ChatStreamer is safe for concurrent use.
	ChatStreamer() ChatStreamer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
