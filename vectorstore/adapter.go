package vectorstore

import (
	"context"

	"github.com/poiesic/lorebase/core"
)

// Collection field names. The index stores every chunk as one row in a
// single collection with these four fields.
const (
	idField       = "id"
	contentField  = "content"
	vectorField   = "embedding"
	metadataField = "metadata"
)

// Outcome is the typed result of a low-level index call. The gateway's
// retry loop branches on it instead of matching error strings.
type Outcome int

const (
	// OutcomeOK means the call succeeded.
	OutcomeOK Outcome = iota
	// OutcomeRetryable means the collection was not loaded; reload and retry.
	OutcomeRetryable
	// OutcomeFatal means the call failed for a non-transient reason.
	OutcomeFatal
)

// Hit is one similarity-search result row.
type Hit struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// Row is one point-query result row.
type Row struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Conn is the narrow adapter the gateway depends on. It isolates the index
// client's unstable response shapes behind stable internal types; the
// production implementation speaks to Milvus, tests use fakes.
//
// Implementations must decode responses defensively: a response whose shape
// cannot be parsed yields an empty result set and a logged anomaly, never a
// panic or an error surfaced to the caller.
type Conn interface {
	// Load ensures the collection is loaded. "Already loaded" is success.
	Load(ctx context.Context) (Outcome, error)

	// Search runs a filtered similarity search and returns ranked hits.
	Search(ctx context.Context, vector []float32, expr string, topK int) ([]Hit, Outcome, error)

	// Query fetches rows matching the filter with pagination.
	Query(ctx context.Context, expr string, limit, offset int) ([]Row, error)

	// Delete removes all rows matching the filter and reports how many.
	Delete(ctx context.Context, expr string) (int64, error)

	// Insert writes sanitized, embedded chunks into the collection.
	Insert(ctx context.Context, chunks []core.Chunk) error

	// Close releases the underlying client connection.
	Close() error
}

// ConnFactory opens a new index connection. The gateway's pool owns the
// resulting connections.
type ConnFactory func(ctx context.Context) (Conn, error)
