package reindex

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/poiesic/lorebase/ai"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/vectorstore"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// Indexer is the slice of the vector gateway reindexing needs.
type Indexer interface {
	ChunkSource
	Delete(ctx context.Context, filter vectorstore.Filter) (int64, error)
	Insert(ctx context.Context, chunks []core.Chunk) error
}

// Summary reports the outcome of a reindexing run.
type Summary struct {
	Chunks  int
	Batches int
	Elapsed time.Duration
}

// Reindexer re-embeds every chunk of a knowledge base in place.
type Reindexer struct {
	indexer     Indexer
	embedder    ai.Embedder
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	progress    *ProgressTracker
	logger      *slog.Logger
}

// Option configures a Reindexer.
type Option func(*Reindexer) error

// WithBatchSize sets how many chunks each page re-embeds.
// Default is 100.
func WithBatchSize(size int) Option {
	return func(r *Reindexer) error {
		if size < 1 {
			size = DefaultBatchSize
		}
		r.batchSize = size
		return nil
	}
}

// WithRetry sets the per-batch embedding retry policy.
// Defaults are 3 attempts starting at 1s, doubling.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(r *Reindexer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		r.maxAttempts = maxAttempts
		r.baseDelay = baseDelay
		return nil
	}
}

// WithProgress attaches a progress tracker to the run.
func WithProgress(progress *ProgressTracker) Option {
	return func(r *Reindexer) error {
		r.progress = progress
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReindexer creates a reindexer.
func NewReindexer(indexer Indexer, embedder ai.Embedder, opts ...Option) (*Reindexer, error) {
	if indexer == nil {
		return nil, ErrGatewayRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Reindexer{
		indexer:     indexer,
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default().With("component", "reindex"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Run re-embeds every chunk of the knowledge base. The base's rows are
// collected into a snapshot first, because the index pages in no defined
// order and rows re-inserted mid-run would re-enter the result set,
// shifting unprocessed rows across page boundaries. Each snapshot batch is
// then embedded with retry and swapped in the index by id: delete the old
// rows, insert the refreshed ones. A batch that keeps failing aborts the
// run so the operator can rerun after fixing the embedding endpoint;
// already swapped batches stay refreshed.
func (r *Reindexer) Run(ctx context.Context, baseID core.ID) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	if r.progress != nil {
		r.progress.Start()
		defer r.progress.Finish()
	}

	var snapshot []vectorstore.Row
	iter := NewChunkIterator(r.indexer, baseID, r.batchSize)
	err := iter.ForEach(ctx, func(page []vectorstore.Row) error {
		snapshot = append(snapshot, page...)
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("collecting chunks: %w", err)
	}

	for offset := 0; offset < len(snapshot); offset += r.batchSize {
		end := offset + r.batchSize
		if end > len(snapshot) {
			end = len(snapshot)
		}
		batch := snapshot[offset:end]

		if err := r.swapPage(ctx, batch); err != nil {
			return summary, fmt.Errorf("batch %d: %w", summary.Batches+1, err)
		}
		summary.Batches++
		summary.Chunks += len(batch)
		if r.progress != nil {
			r.progress.Increment(len(batch))
		}
	}

	summary.Elapsed = time.Since(start)
	r.logger.Info("reindex complete",
		"baseId", baseID, "chunks", summary.Chunks, "batches", summary.Batches,
		"elapsed", summary.Elapsed)
	return summary, nil
}

func (r *Reindexer) swapPage(ctx context.Context, page []vectorstore.Row) error {
	texts := make([]string, len(page))
	ids := make([]string, len(page))
	for i, row := range page {
		texts[i] = row.Content
		ids[i] = row.ID
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(page), err)
	}
	if len(vectors) != len(page) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(page))
	}

	chunks := make([]core.Chunk, len(page))
	for i, row := range page {
		chunks[i] = core.Chunk{
			ID:      row.ID,
			Content: row.Content,
			Vector:  vectors[i],
			Meta:    metaFromRow(row.Metadata),
		}
	}

	if _, err := r.indexer.Delete(ctx, vectorstore.IDIn(ids...)); err != nil {
		return fmt.Errorf("deleting stale rows: %w", err)
	}
	if err := r.indexer.Insert(ctx, chunks); err != nil {
		return fmt.Errorf("inserting refreshed rows: %w", err)
	}
	return nil
}

// metaFromRow rebuilds typed chunk metadata from the index's string form.
// Unrecognized keys ride along in Extra.
func metaFromRow(meta map[string]string) core.ChunkMeta {
	out := core.ChunkMeta{Extra: map[string]any{}}
	for k, v := range meta {
		switch k {
		case core.MetaKeyDocID:
			id, _ := strconv.ParseUint(v, 10, 64)
			out.DocID = core.ID(id)
		case core.MetaKeyBaseID:
			id, _ := strconv.ParseUint(v, 10, 64)
			out.BaseID = core.ID(id)
		case core.MetaKeyFileName:
			out.FileName = v
		case core.MetaKeyChunkIndex:
			out.ChunkIndex, _ = strconv.Atoi(v)
		case core.MetaKeyIsEnabled:
			out.IsEnabled = v == "true"
		default:
			out.Extra[k] = v
		}
	}
	return out
}
