// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/vectorstore"
)

const (
	// DefaultBatchSize is the default number of chunks fetched per page
	DefaultBatchSize = 100
)

// ChunkSource is the slice of the vector gateway iteration needs.
type ChunkSource interface {
	Query(ctx context.Context, filter vectorstore.Filter, limit, offset int) ([]vectorstore.Row, error)
}

// ChunkIterator pages through the indexed chunks of one knowledge base.
type ChunkIterator struct {
	source    ChunkSource
	baseID    core.ID
	batchSize int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks to fetch per page (must be > 0)
func NewChunkIterator(source ChunkSource, baseID core.ID, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ChunkIterator{
		source:    source,
		baseID:    baseID,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each page of chunks. Iteration stops on the first
// error from fn, on a short page, or on context cancellation.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]vectorstore.Row) error) error {
	filter := vectorstore.NewFilter().Eq(core.MetaKeyBaseID, it.baseID.String())

	for offset := 0; ; offset += it.batchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, err := it.source.Query(ctx, filter, it.batchSize, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		if err := fn(page); err != nil {
			return err
		}

		if len(page) < it.batchSize {
			return nil
		}
	}
}
