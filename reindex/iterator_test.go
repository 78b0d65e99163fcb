package reindex

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/vectorstore"
)

// pagedSource serves a fixed row set page by page, like the index does.
type pagedSource struct {
	rows       []vectorstore.Row
	queryCalls int
	lastExpr   string
	failAfter  int
}

func (s *pagedSource) Query(ctx context.Context, filter vectorstore.Filter, limit, offset int) ([]vectorstore.Row, error) {
	s.queryCalls++
	s.lastExpr = filter.Expr()
	if s.failAfter > 0 && s.queryCalls > s.failAfter {
		return nil, errors.New("query failed")
	}
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func makeRows(n int) []vectorstore.Row {
	rows := make([]vectorstore.Row, n)
	for i := range rows {
		rows[i] = vectorstore.Row{
			ID:      fmt.Sprintf("7_%d_abc", i),
			Content: fmt.Sprintf("chunk %d", i),
			Metadata: map[string]string{
				"docId":      "7",
				"baseId":     "3",
				"fileName":   "guide.pdf",
				"chunkIndex": fmt.Sprintf("%d", i),
				"isEnabled":  "true",
			},
		}
	}
	return rows
}

func TestIteratorVisitsAllPages(t *testing.T) {
	source := &pagedSource{rows: makeRows(25)}
	iter := NewChunkIterator(source, 3, 10)

	var seen []string
	pages := 0
	err := iter.ForEach(context.Background(), func(page []vectorstore.Row) error {
		pages++
		for _, row := range page {
			seen = append(seen, row.ID)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 25)
	assert.Contains(t, source.lastExpr, `baseId`)
	assert.Contains(t, source.lastExpr, `"3"`)
}

func TestIteratorStopsOnShortPage(t *testing.T) {
	source := &pagedSource{rows: makeRows(7)}
	iter := NewChunkIterator(source, 3, 10)

	err := iter.ForEach(context.Background(), func([]vectorstore.Row) error { return nil })

	require.NoError(t, err)
	// One short page is enough; no trailing empty query.
	assert.Equal(t, 1, source.queryCalls)
}

func TestIteratorEmptyBase(t *testing.T) {
	source := &pagedSource{}
	iter := NewChunkIterator(source, 3, 10)

	pages := 0
	err := iter.ForEach(context.Background(), func([]vectorstore.Row) error {
		pages++
		return nil
	})

	require.NoError(t, err)
	assert.Zero(t, pages)
}

func TestIteratorPropagatesCallbackError(t *testing.T) {
	source := &pagedSource{rows: makeRows(25)}
	iter := NewChunkIterator(source, 3, 10)

	boom := errors.New("boom")
	err := iter.ForEach(context.Background(), func([]vectorstore.Row) error { return boom })

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, source.queryCalls)
}

func TestIteratorPropagatesQueryError(t *testing.T) {
	source := &pagedSource{rows: makeRows(25), failAfter: 1}
	iter := NewChunkIterator(source, 3, 10)

	err := iter.ForEach(context.Background(), func([]vectorstore.Row) error { return nil })
	assert.Error(t, err)
}

func TestIteratorStopsOnContextCancel(t *testing.T) {
	source := &pagedSource{rows: makeRows(25)}
	iter := NewChunkIterator(source, 3, 10)

	ctx, cancel := context.WithCancel(context.Background())
	err := iter.ForEach(ctx, func([]vectorstore.Row) error {
		cancel()
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
}
