package vectorstore

import (
	"fmt"
	"strings"

	"github.com/poiesic/lorebase/core"
)

// Filter builds conjunctive metadata filter expressions for the index.
// All values are compared as strings; the grammar is limited to
// metadata["key"] == "value" terms joined by &&.
type Filter struct {
	terms []string
}

// NewFilter creates an empty filter.
func NewFilter() Filter {
	return Filter{}
}

// Eq appends an equality term for a metadata key.
func (f Filter) Eq(key, value string) Filter {
	term := fmt.Sprintf("%s[%q] == %q", metadataField, key, value)
	return Filter{terms: append(append([]string(nil), f.terms...), term)}
}

// ByBase restricts to enabled chunks of one knowledge base.
// This is the retrieval filter: it prevents cross-base retrieval and
// excludes chunks of disabled documents.
func ByBase(baseID core.ID) Filter {
	return NewFilter().
		Eq(core.MetaKeyBaseID, baseID.String()).
		Eq(core.MetaKeyIsEnabled, "true")
}

// ByDoc restricts to all chunks of one document.
func ByDoc(docID core.ID) Filter {
	return NewFilter().Eq(core.MetaKeyDocID, docID.String())
}

// IDIn restricts to an explicit set of chunk IDs.
func IDIn(ids ...string) Filter {
	if len(ids) == 0 {
		return NewFilter()
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	term := fmt.Sprintf("%s in [%s]", idField, strings.Join(quoted, ", "))
	return Filter{terms: []string{term}}
}

// Empty reports whether the filter has no terms.
func (f Filter) Empty() bool {
	return len(f.terms) == 0
}

// Expr renders the filter expression, or "" for an empty filter.
func (f Filter) Expr() string {
	return strings.Join(f.terms, " && ")
}
