package vectorstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/core"
)

func testLineage() Lineage {
	return Lineage{
		DocID:     42,
		BaseID:    7,
		FileName:  "handbook.pdf",
		IsEnabled: true,
		Timestamp: 1000,
	}
}

func TestSanitizeRewritesLineage(t *testing.T) {
	chunks := []core.Chunk{
		{ID: "a", Content: "first"},
		{ID: "b", Content: "second"},
	}

	out, warnings := Sanitize(chunks, testLineage())

	require.Len(t, out, 2)
	assert.Empty(t, warnings)
	for i, chunk := range out {
		assert.Equal(t, core.ID(42), chunk.Meta.DocID)
		assert.Equal(t, core.ID(7), chunk.Meta.BaseID)
		assert.Equal(t, "handbook.pdf", chunk.Meta.FileName)
		assert.Equal(t, i, chunk.Meta.ChunkIndex)
		assert.True(t, chunk.Meta.IsEnabled)
	}
}

func TestSanitizeDropsBlankContentAndRenumbersDensely(t *testing.T) {
	chunks := []core.Chunk{
		{ID: "a", Content: "keep me"},
		{ID: "b", Content: "   "},
		{ID: "c", Content: "keep me too"},
	}

	out, warnings := Sanitize(chunks, testLineage())

	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].Meta.ChunkIndex)
	assert.Equal(t, 1, out[1].Meta.ChunkIndex)
	assert.Equal(t, "c", out[1].ID)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "chunk[1].content is blank")
}

func TestSanitizeSynthesizesBlankIDs(t *testing.T) {
	chunks := []core.Chunk{
		{ID: "", Content: "orphan"},
		{ID: "  ", Content: "also orphan"},
	}

	out, warnings := Sanitize(chunks, testLineage())

	require.Len(t, out, 2)
	assert.Equal(t, "42_0_1000_retry", out[0].ID)
	assert.Equal(t, "42_1_1001_retry", out[1].ID)
	assert.Len(t, warnings, 2)
}

func TestSanitizeNormalizesMetadataExtras(t *testing.T) {
	chunks := []core.Chunk{
		{
			ID:      "a",
			Content: "body",
			Meta: core.ChunkMeta{
				Extra: map[string]any{
					"author":  nil,
					"  ":      "dropped key",
					"page":    3,
					"title":   "  padded  ",
					"nested":  map[string]any{"inner": nil},
					"tags":    []any{"x", nil},
					"typedss": map[string]string{"k": "v"},
				},
			},
		},
	}

	out, warnings := Sanitize(chunks, testLineage())

	require.Len(t, out, 1)
	extra := out[0].Meta.Extra
	assert.Equal(t, "", extra["author"])
	assert.NotContains(t, extra, "  ")
	assert.Equal(t, 3, extra["page"])
	assert.Equal(t, "padded", extra["title"])

	nested, ok := extra["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "", nested["inner"])

	tags, ok := extra["tags"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"x", ""}, tags)

	typed, ok := extra["typedss"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v", typed["k"])

	joined := strings.Join(warnings, "\n")
	assert.Contains(t, joined, "is null")
	assert.Contains(t, joined, "blank and dropped")
}

func TestSanitizeFallbackFileName(t *testing.T) {
	lineage := testLineage()
	lineage.FileName = "   "

	out, _ := Sanitize([]core.Chunk{{ID: "a", Content: "x"}}, lineage)

	require.Len(t, out, 1)
	assert.Equal(t, "unnamed-file", out[0].Meta.FileName)
}

func TestSanitizeEmptyInputWarnsWithoutError(t *testing.T) {
	out, warnings := Sanitize(nil, testLineage())

	assert.Empty(t, out)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "empty")
}
