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

package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/poiesic/lorebase/core"
)

// MilvusConfig locates the Milvus deployment and collection.
type MilvusConfig struct {
	Address    string
	Collection string
}

// milvusConn adapts one Milvus client connection to Conn. Only this file
// touches the SDK; everything above it speaks Conn.
type milvusConn struct {
	client     client.Client
	collection string
	logger     *slog.Logger
}

var _ Conn = (*milvusConn)(nil)

// NewMilvusFactory returns a ConnFactory dialing the configured deployment.
func NewMilvusFactory(cfg MilvusConfig, logger *slog.Logger) ConnFactory {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "milvus")

	return func(ctx context.Context) (Conn, error) {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			return nil, fmt.Errorf("dialing milvus at %s: %w", cfg.Address, err)
		}
		return &milvusConn{
			client:     c,
			collection: cfg.Collection,
			logger:     logger,
		}, nil
	}
}

func (m *milvusConn) Load(ctx context.Context) (Outcome, error) {
	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return OutcomeFatal, fmt.Errorf("loading collection %s: %w", m.collection, err)
	}
	return OutcomeOK, nil
}

func (m *milvusConn) Search(ctx context.Context, vector []float32, expr string, topK int) ([]Hit, Outcome, error) {
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, OutcomeFatal, fmt.Errorf("building search params: %w", err)
	}

	results, err := m.client.Search(ctx, m.collection, nil, expr,
		[]string{idField, contentField, metadataField},
		[]entity.Vector{entity.FloatVector(vector)},
		vectorField, entity.COSINE, topK, sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong))
	if err != nil {
		if isNotLoaded(err) {
			return nil, OutcomeRetryable, err
		}
		return nil, OutcomeFatal, err
	}

	var hits []Hit
	for _, result := range results {
		ids := columnByName(result.Fields, idField)
		contents := columnByName(result.Fields, contentField)
		metas := columnByName(result.Fields, metadataField)

		for i := 0; i < result.ResultCount; i++ {
			hit := Hit{Metadata: map[string]string{}}
			if i < len(result.Scores) {
				hit.Score = result.Scores[i]
			}
			hit.ID = stringAt(ids, i, m.logger)
			hit.Content = stringAt(contents, i, m.logger)
			if metas != nil {
				hit.Metadata = metadataAt(metas, i, m.logger)
			}
			hits = append(hits, hit)
		}
	}
	return hits, OutcomeOK, nil
}

func (m *milvusConn) Query(ctx context.Context, expr string, limit, offset int) ([]Row, error) {
	results, err := m.client.Query(ctx, m.collection, nil, expr,
		[]string{idField, contentField, metadataField},
		client.WithLimit(int64(limit)), client.WithOffset(int64(offset)))
	if err != nil {
		return nil, err
	}

	ids := columnByName(results, idField)
	contents := columnByName(results, contentField)
	metas := columnByName(results, metadataField)
	if ids == nil {
		return nil, nil
	}

	rows := make([]Row, 0, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		row := Row{
			ID:       stringAt(ids, i, m.logger),
			Content:  stringAt(contents, i, m.logger),
			Metadata: map[string]string{},
		}
		if metas != nil {
			row.Metadata = metadataAt(metas, i, m.logger)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Delete counts matching rows first: the index's delete reports nothing.
func (m *milvusConn) Delete(ctx context.Context, expr string) (int64, error) {
	results, err := m.client.Query(ctx, m.collection, nil, expr,
		[]string{idField}, client.WithLimit(int64(countProbeLimit)))
	if err != nil {
		return 0, err
	}
	var count int64
	if ids := columnByName(results, idField); ids != nil {
		count = int64(ids.Len())
	}

	if err := m.client.Delete(ctx, m.collection, "", expr); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *milvusConn) Insert(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	dim := len(chunks[0].Vector)
	ids := make([]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	metas := make([][]byte, 0, len(chunks))

	for _, chunk := range chunks {
		meta, err := json.Marshal(chunk.Meta.Document())
		if err != nil {
			return fmt.Errorf("encoding metadata for chunk %s: %w", chunk.ID, err)
		}
		ids = append(ids, chunk.ID)
		contents = append(contents, chunk.Content)
		vectors = append(vectors, chunk.Vector)
		metas = append(metas, meta)
	}

	_, err := m.client.Insert(ctx, m.collection, "",
		entity.NewColumnVarChar(idField, ids),
		entity.NewColumnVarChar(contentField, contents),
		entity.NewColumnFloatVector(vectorField, dim, vectors),
		entity.NewColumnJSONBytes(metadataField, metas))
	if err != nil {
		return fmt.Errorf("inserting %d chunks: %w", len(chunks), err)
	}
	return nil
}

func (m *milvusConn) Close() error {
	return m.client.Close()
}

func columnByName(columns []entity.Column, name string) entity.Column {
	for _, col := range columns {
		if col != nil && col.Name() == name {
			return col
		}
	}
	return nil
}

// stringAt defensively extracts a string cell. An unexpected column shape
// yields an empty string and a logged anomaly instead of a failed search.
func stringAt(col entity.Column, i int, logger *slog.Logger) string {
	if col == nil || i >= col.Len() {
		return ""
	}
	s, err := col.GetAsString(i)
	if err == nil {
		return s
	}
	raw, rawErr := col.Get(i)
	if rawErr != nil {
		logger.Warn("unreadable cell in search result", "field", col.Name(), "row", i, "error", err)
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		logger.Warn("unexpected cell type in search result",
			"field", col.Name(), "row", i, "type", fmt.Sprintf("%T", raw))
		return ""
	}
}

// metadataAt decodes one row of the JSON metadata column into flat strings.
// Undecodable metadata degrades to an empty map, never a failed search.
func metadataAt(col entity.Column, i int, logger *slog.Logger) map[string]string {
	out := map[string]string{}
	if col == nil || i >= col.Len() {
		return out
	}

	raw, err := col.Get(i)
	if err != nil {
		logger.Warn("unreadable metadata cell", "row", i, "error", err)
		return out
	}

	var blob []byte
	switch v := raw.(type) {
	case []byte:
		blob = v
	case string:
		blob = []byte(v)
	default:
		logger.Warn("unexpected metadata cell type", "row", i, "type", fmt.Sprintf("%T", raw))
		return out
	}

	var decoded map[string]any
	if err := json.Unmarshal(blob, &decoded); err != nil {
		logger.Warn("undecodable metadata cell", "row", i, "error", err)
		return out
	}
	for k, v := range decoded {
		out[k] = fmt.Sprint(v)
	}
	return out
}
