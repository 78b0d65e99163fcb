package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lorebase/core"
)

const (
	defaultPoolSize      = 4
	defaultRetryAttempts = 3
	defaultBackoffUnit   = 500 * time.Millisecond
)

// Gateway owns access to the vector index. Every operation acquires a
// connection from the bounded pool and releases it on every exit path.
type Gateway struct {
	pool          *connPool
	retryAttempts int
	backoffUnit   time.Duration
	logger        *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithPoolSize bounds the number of concurrent index connections.
// Default is 4, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(g *Gateway) error {
		if size < 1 {
			size = 1
		}
		g.pool = newConnPool(g.pool.factory, size, g.logger)
		return nil
	}
}

// WithRetryBackoff sets the search retry bound and linear backoff unit.
// Attempt n sleeps n × unit before retrying a not-loaded collection.
func WithRetryBackoff(attempts int, unit time.Duration) Option {
	return func(g *Gateway) error {
		if attempts < 1 {
			attempts = 1
		}
		g.retryAttempts = attempts
		g.backoffUnit = unit
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger
		g.pool.logger = logger
		return nil
	}
}

// NewGateway creates a gateway over the given connection factory.
func NewGateway(factory ConnFactory, opts ...Option) (*Gateway, error) {
	if factory == nil {
		return nil, ErrFactoryRequired
	}

	logger := slog.Default().With("component", "vectorstore")
	g := &Gateway{
		pool:          newConnPool(factory, defaultPoolSize, logger),
		retryAttempts: defaultRetryAttempts,
		backoffUnit:   defaultBackoffUnit,
		logger:        logger,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Close releases all pooled connections.
func (g *Gateway) Close() {
	g.pool.close()
}

// withConn runs fn with a pooled connection. The release is deferred so the
// slot is returned on every exit path; a connection involved in a failed or
// panicking operation is discarded rather than reused.
func (g *Gateway) withConn(ctx context.Context, fn func(Conn) error) error {
	conn, err := g.pool.acquire(ctx)
	if err != nil {
		return err
	}

	healthy := false
	defer func() { g.pool.release(conn, healthy) }()

	if err := fn(conn); err != nil {
		return err
	}
	healthy = true
	return nil
}

// Search runs a filtered similarity search. The collection is loaded
// first (idempotent), and a search that fails because the index unloaded
// the collection under memory pressure is retried up to the configured
// bound with linearly increasing backoff. Any other failure propagates
// immediately. Hits scoring below threshold are discarded.
func (g *Gateway) Search(ctx context.Context, vector []float32, filter Filter, topK int, threshold float32) ([]core.RetrievedChunk, error) {
	var hits []Hit

	err := g.withConn(ctx, func(conn Conn) error {
		if err := g.ensureLoaded(ctx, conn); err != nil {
			return err
		}

		for attempt := 1; attempt <= g.retryAttempts; attempt++ {
			found, outcome, err := conn.Search(ctx, vector, filter.Expr(), topK)
			switch outcome {
			case OutcomeOK:
				hits = found
				return nil
			case OutcomeRetryable:
				if attempt == g.retryAttempts {
					return fmt.Errorf("%w: %d attempts: %w", ErrRetriesExhausted, attempt, err)
				}
				g.logger.Warn("collection not loaded during search, reloading",
					"attempt", attempt, "maxAttempts", g.retryAttempts)
				if err := g.ensureLoaded(ctx, conn); err != nil {
					return err
				}
				if err := g.backoff(ctx, attempt); err != nil {
					return err
				}
			default:
				return Diagnose(err)
			}
		}
		return ErrRetriesExhausted
	})
	if err != nil {
		return nil, err
	}

	results := make([]core.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		results = append(results, core.RetrievedChunk{
			ID:      hit.ID,
			Content: hit.Content,
			Score:   hit.Score,
			Meta:    hit.Metadata,
		})
	}

	g.logger.Debug("similarity search complete",
		"hits", len(hits), "aboveThreshold", len(results), "topK", topK)
	return results, nil
}

// Query fetches rows matching the filter with pagination, ordered as the
// index returns them.
func (g *Gateway) Query(ctx context.Context, filter Filter, limit, offset int) ([]Row, error) {
	var rows []Row
	err := g.withConn(ctx, func(conn Conn) error {
		found, err := conn.Query(ctx, filter.Expr(), limit, offset)
		if err != nil {
			return Diagnose(err)
		}
		rows = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Count reports how many rows match the filter.
// A large page query stands in for a native count; the index has none.
func (g *Gateway) Count(ctx context.Context, filter Filter) (int64, error) {
	rows, err := g.Query(ctx, filter, countProbeLimit, 0)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

const countProbeLimit = 10000

// Delete removes all rows matching the filter and returns the count.
// An empty filter is refused: it would empty the whole collection.
func (g *Gateway) Delete(ctx context.Context, filter Filter) (int64, error) {
	if filter.Empty() {
		return 0, ErrEmptyFilter
	}

	var deleted int64
	err := g.withConn(ctx, func(conn Conn) error {
		n, err := conn.Delete(ctx, filter.Expr())
		if err != nil {
			return Diagnose(err)
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	g.logger.Info("deleted rows from index", "count", deleted, "filter", filter.Expr())
	return deleted, nil
}

// Insert writes sanitized, embedded chunks into the collection.
func (g *Gateway) Insert(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return g.withConn(ctx, func(conn Conn) error {
		if err := conn.Insert(ctx, chunks); err != nil {
			return Diagnose(err)
		}
		return nil
	})
}

func (g *Gateway) ensureLoaded(ctx context.Context, conn Conn) error {
	outcome, err := conn.Load(ctx)
	if outcome != OutcomeOK {
		return Diagnose(err)
	}
	return nil
}

// backoff sleeps attempt × unit, waking early on ctx cancellation.
func (g *Gateway) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * g.backoffUnit)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
