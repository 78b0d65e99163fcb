package reindex

import "errors"

var (
	// ErrGatewayRequired is returned when a vector gateway is not provided.
	ErrGatewayRequired = errors.New("vector gateway required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
)
