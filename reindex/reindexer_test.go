// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/ai/mock"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/vectorstore"
)

// fakeIndex serves seeded rows and records the delete/insert swap.
type fakeIndex struct {
	pagedSource
	deleteExprs []string
	inserted    [][]core.Chunk
}

func (f *fakeIndex) Delete(ctx context.Context, filter vectorstore.Filter) (int64, error) {
	f.deleteExprs = append(f.deleteExprs, filter.Expr())
	return 0, nil
}

func (f *fakeIndex) Insert(ctx context.Context, chunks []core.Chunk) error {
	f.inserted = append(f.inserted, chunks)
	return nil
}

func TestReindexerSwapsEveryChunk(t *testing.T) {
	index := &fakeIndex{pagedSource: pagedSource{rows: makeRows(25)}}
	embedder := mock.NewMockEmbedder()

	reindexer, err := NewReindexer(index, embedder, WithBatchSize(10))
	require.NoError(t, err)

	summary, err := reindexer.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 25, summary.Chunks)
	assert.Equal(t, 3, summary.Batches)

	require.Len(t, index.inserted, 3)
	total := 0
	for _, batch := range index.inserted {
		total += len(batch)
		for _, chunk := range batch {
			assert.NotEmpty(t, chunk.Vector)
		}
	}
	assert.Equal(t, 25, total)

	require.Len(t, index.deleteExprs, 3)
	assert.Contains(t, index.deleteExprs[0], `"7_0_abc"`)
}

func TestReindexerRebuildsMetadata(t *testing.T) {
	rows := makeRows(1)
	rows[0].Metadata["author"] = "poiesic"
	index := &fakeIndex{pagedSource: pagedSource{rows: rows}}

	reindexer, err := NewReindexer(index, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = reindexer.Run(context.Background(), 3)
	require.NoError(t, err)

	require.Len(t, index.inserted, 1)
	meta := index.inserted[0][0].Meta
	assert.Equal(t, core.ID(7), meta.DocID)
	assert.Equal(t, core.ID(3), meta.BaseID)
	assert.Equal(t, "guide.pdf", meta.FileName)
	assert.Equal(t, 0, meta.ChunkIndex)
	assert.True(t, meta.IsEnabled)
	assert.Equal(t, "poiesic", meta.Extra["author"])
}

func TestReindexerRetriesEmbedding(t *testing.T) {
	index := &fakeIndex{pagedSource: pagedSource{rows: makeRows(5)}}

	embedder := mock.NewMockEmbedder()
	failures := 2
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("transient")
		}
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{0.1}
		}
		return vectors, nil
	}

	reindexer, err := NewReindexer(index, embedder,
		WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	summary, err := reindexer.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Chunks)
	assert.Len(t, index.inserted, 1)
}

func TestReindexerAbortsWhenEmbeddingExhausted(t *testing.T) {
	index := &fakeIndex{pagedSource: pagedSource{rows: makeRows(5)}}

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("endpoint down")
	}

	reindexer, err := NewReindexer(index, embedder,
		WithRetry(2, time.Millisecond))
	require.NoError(t, err)

	summary, err := reindexer.Run(context.Background(), 3)
	require.Error(t, err)
	assert.Zero(t, summary.Chunks)
	assert.Empty(t, index.inserted)
	assert.Empty(t, index.deleteExprs)
}

func TestReindexerRejectsVectorCountMismatch(t *testing.T) {
	index := &fakeIndex{pagedSource: pagedSource{rows: makeRows(5)}}

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{0.1}}, nil
	}

	reindexer, err := NewReindexer(index, embedder)
	require.NoError(t, err)

	_, err = reindexer.Run(context.Background(), 3)
	require.Error(t, err)
	assert.Empty(t, index.inserted)
}

// liveIndex mimics the real index: deletes shrink the result set and
// re-inserted rows re-enter it, so page offsets shift while a run mutates
// the collection.
type liveIndex struct {
	rows     []vectorstore.Row
	ops      []string
	inserted map[string]int
}

func (l *liveIndex) Query(_ context.Context, _ vectorstore.Filter, limit, offset int) ([]vectorstore.Row, error) {
	l.ops = append(l.ops, "query")
	if offset >= len(l.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(l.rows) {
		end = len(l.rows)
	}
	return l.rows[offset:end], nil
}

func (l *liveIndex) Delete(_ context.Context, filter vectorstore.Filter) (int64, error) {
	l.ops = append(l.ops, "delete")
	expr := filter.Expr()
	kept := l.rows[:0]
	var n int64
	for _, row := range l.rows {
		if strings.Contains(expr, `"`+row.ID+`"`) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	l.rows = kept
	return n, nil
}

func (l *liveIndex) Insert(_ context.Context, chunks []core.Chunk) error {
	l.ops = append(l.ops, "insert")
	for _, chunk := range chunks {
		l.inserted[chunk.ID]++
		l.rows = append(l.rows, vectorstore.Row{
			ID:       chunk.ID,
			Content:  chunk.Content,
			Metadata: map[string]string{"baseId": "3"},
		})
	}
	return nil
}

func TestReindexerSnapshotsBeforeMutating(t *testing.T) {
	index := &liveIndex{rows: makeRows(25), inserted: map[string]int{}}

	reindexer, err := NewReindexer(index, mock.NewMockEmbedder(), WithBatchSize(10))
	require.NoError(t, err)

	summary, err := reindexer.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 25, summary.Chunks)

	// Every original chunk is refreshed exactly once even though deletes
	// and re-inserts shifted the index's pagination underneath the run.
	require.Len(t, index.inserted, 25)
	for id, count := range index.inserted {
		assert.Equal(t, 1, count, "chunk %s", id)
	}

	firstDelete := slices.Index(index.ops, "delete")
	require.GreaterOrEqual(t, firstDelete, 0)
	assert.NotContains(t, index.ops[firstDelete:], "query",
		"all pages must be read before the index is mutated")
}

func TestNewReindexerValidation(t *testing.T) {
	embedder := mock.NewMockEmbedder()

	_, err := NewReindexer(nil, embedder)
	assert.ErrorIs(t, err, ErrGatewayRequired)

	_, err = NewReindexer(&fakeIndex{}, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewReindexer(&fakeIndex{}, embedder, WithRetry(0, time.Second))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}
