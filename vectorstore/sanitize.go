package vectorstore

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/poiesic/lorebase/core"
)

// Lineage carries the facts rewritten onto every chunk that survives
// sanitization.
type Lineage struct {
	DocID     core.ID
	BaseID    core.ID
	FileName  string
	IsEnabled bool
	// Timestamp seeds synthesized chunk ids; callers pass a monotonic value
	// such as time.Now().UnixMilli().
	Timestamp int64
}

// Sanitize normalizes candidate chunks into the index's strict non-null
// schema. Rules, applied per chunk in input order:
//
//   - blank id: synthesize "{docId}_{index}_{timestamp+index}_retry"
//   - blank content after trimming: drop the chunk with a warning
//   - metadata extras: nulls become empty strings, null keys are dropped,
//     non-scalar leaves are stringified, recursively
//   - lineage fields are (re)written onto every survivor, with chunkIndex
//     renumbered densely over survivors so dropped chunks leave no gaps
//
// Empty input yields an empty output plus a warning, never an error; the
// caller decides whether zero surviving chunks is fatal.
func Sanitize(chunks []core.Chunk, lineage Lineage) ([]core.Chunk, []string) {
	var warnings []string
	sanitized := make([]core.Chunk, 0, len(chunks))

	if len(chunks) == 0 {
		warnings = append(warnings, "source chunk list is empty")
		return sanitized, warnings
	}

	safeIndex := 0
	for i, chunk := range chunks {
		id := strings.TrimSpace(chunk.ID)
		if id == "" {
			id = fmt.Sprintf("%d_%d_%d_retry", lineage.DocID, i, lineage.Timestamp+int64(i))
			warnings = append(warnings, fmt.Sprintf("chunk[%d].id is blank, generated fallback id=%s", i, id))
		}

		content := strings.TrimSpace(chunk.Content)
		if content == "" {
			warnings = append(warnings, fmt.Sprintf("chunk[%d].content is blank and skipped", i))
			continue
		}

		extra := sanitizeMap(chunk.Meta.Extra, fmt.Sprintf("chunk[%d].metadata", i), &warnings)

		sanitized = append(sanitized, core.Chunk{
			ID:      id,
			Content: content,
			Vector:  chunk.Vector,
			Meta: core.ChunkMeta{
				DocID:      lineage.DocID,
				BaseID:     lineage.BaseID,
				FileName:   normalizeString(lineage.FileName, "unnamed-file"),
				ChunkIndex: safeIndex,
				IsEnabled:  lineage.IsEnabled,
				Extra:      extra,
			},
		})
		safeIndex++
	}

	return sanitized, warnings
}

func sanitizeMap(m map[string]any, path string, warnings *[]string) map[string]any {
	safe := make(map[string]any, len(m))
	if len(m) == 0 {
		return safe
	}

	for rawKey, value := range m {
		key := strings.TrimSpace(rawKey)
		if key == "" {
			*warnings = append(*warnings, fmt.Sprintf("%s key %q is blank and dropped", path, rawKey))
			continue
		}
		safe[key] = sanitizeValue(value, path+"."+key, warnings)
	}
	return safe
}

func sanitizeSlice(items []any, path string, warnings *[]string) []any {
	safe := make([]any, 0, len(items))
	for i, item := range items {
		safe = append(safe, sanitizeValue(item, fmt.Sprintf("%s[%d]", path, i), warnings))
	}
	return safe
}

func sanitizeValue(value any, path string, warnings *[]string) any {
	if value == nil {
		*warnings = append(*warnings, path+" is null, replaced with empty string")
		return ""
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case map[string]any:
		return sanitizeMap(v, path, warnings)
	case []any:
		return sanitizeSlice(v, path, warnings)
	}

	// Typed maps, slices and arrays arrive from upstream parsers with
	// concrete element types; normalize them reflectively.
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		casted := make(map[string]any, rv.Len())
		for _, mk := range rv.MapKeys() {
			key := strings.TrimSpace(fmt.Sprintf("%v", mk.Interface()))
			if key == "" {
				*warnings = append(*warnings, path+" has blank nested key, dropped")
				continue
			}
			casted[key] = rv.MapIndex(mk).Interface()
		}
		return sanitizeMap(casted, path, warnings)
	case reflect.Slice, reflect.Array:
		items := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
		return sanitizeSlice(items, path, warnings)
	}

	// Unsupported leaf types are stringified to avoid serializer edge cases
	// in the index client.
	*warnings = append(*warnings, fmt.Sprintf("%s type=%T converted to string", path, value))
	return normalizeString(fmt.Sprintf("%v", value), "")
}

func normalizeString(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
