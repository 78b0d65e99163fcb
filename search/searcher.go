package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/lorebase/ai"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/vectorstore"
)

const (
	defaultTopK              = 5
	defaultPrimaryThreshold  = 0.70
	defaultFallbackThreshold = 0.55
)

// VectorSearcher is the slice of the vector gateway retrieval needs.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, filter vectorstore.Filter, topK int, threshold float32) ([]core.RetrievedChunk, error)
}

// Searcher retrieves knowledge base chunks relevant to a query.
type Searcher struct {
	gateway           VectorSearcher
	embedder          ai.Embedder
	topK              int
	primaryThreshold  float32
	fallbackThreshold float32
	logger            *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithTopK sets how many chunks each search requests.
// Default is 5, with a minimum of 1.
func WithTopK(topK int) Option {
	return func(s *Searcher) error {
		if topK < 1 {
			topK = 1
		}
		s.topK = topK
		return nil
	}
}

// WithThresholds sets the primary and fallback similarity thresholds.
// Defaults are 0.70 and 0.55. The fallback must be strictly below the
// primary; setting them equal disables the fallback search.
func WithThresholds(primary, fallback float32) Option {
	return func(s *Searcher) error {
		if fallback > primary {
			return ErrInvalidThresholds
		}
		s.primaryThreshold = primary
		s.fallbackThreshold = fallback
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(gateway VectorSearcher, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		gateway:           gateway,
		embedder:          embedder,
		topK:              defaultTopK,
		primaryThreshold:  defaultPrimaryThreshold,
		fallbackThreshold: defaultFallbackThreshold,
		logger:            slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Retrieve finds the chunks of one knowledge base most relevant to the query.
// Retrieval is best effort: any embedding or index error yields empty results
// and an error-level log, never a failure the caller must handle.
func (s *Searcher) Retrieve(ctx context.Context, query string, baseID core.ID) []core.RetrievedChunk {
	return s.RetrieveWithMonitor(ctx, query, baseID, nil)
}

// RetrieveWithMonitor retrieves with observation hooks at each stage.
func (s *Searcher) RetrieveWithMonitor(ctx context.Context, query string, baseID core.ID, monitor RetrievalMonitor) []core.RetrievedChunk {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(query, baseID)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error embedding query", "baseId", baseID, "err", err)
		return nil
	}
	monitor.AfterEmbedding(len(vector))

	filter := vectorstore.ByBase(baseID)

	results, err := s.gateway.Search(ctx, vector, filter, s.topK, s.primaryThreshold)
	if err != nil {
		s.logger.Error("error searching index", "baseId", baseID, "err", err)
		return nil
	}
	monitor.AfterPrimarySearch(len(results))

	// Exactly one relaxed retry when the strict threshold finds nothing.
	if len(results) == 0 && s.fallbackThreshold < s.primaryThreshold {
		monitor.FallbackTriggered(s.fallbackThreshold)
		s.logger.Debug("no hits at primary threshold, retrying",
			"baseId", baseID, "fallback", s.fallbackThreshold)

		results, err = s.gateway.Search(ctx, vector, filter, s.topK, s.fallbackThreshold)
		if err != nil {
			s.logger.Error("error searching index at fallback threshold", "baseId", baseID, "err", err)
			return nil
		}
	}

	monitor.Finish(results)
	s.logger.Debug("retrieval complete", "baseId", baseID, "chunks", len(results))
	return results
}
