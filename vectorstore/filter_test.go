package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterExpr(t *testing.T) {
	f := NewFilter().Eq("docId", "42").Eq("fileName", "a.pdf")
	assert.Equal(t, `metadata["docId"] == "42" && metadata["fileName"] == "a.pdf"`, f.Expr())
}

func TestFilterEmpty(t *testing.T) {
	assert.True(t, NewFilter().Empty())
	assert.Equal(t, "", NewFilter().Expr())
	assert.False(t, NewFilter().Eq("k", "v").Empty())
}

func TestFilterEqDoesNotMutateReceiver(t *testing.T) {
	base := NewFilter().Eq("docId", "1")
	a := base.Eq("chunkIndex", "0")
	b := base.Eq("chunkIndex", "1")

	assert.Equal(t, `metadata["docId"] == "1" && metadata["chunkIndex"] == "0"`, a.Expr())
	assert.Equal(t, `metadata["docId"] == "1" && metadata["chunkIndex"] == "1"`, b.Expr())
}

func TestByBaseExcludesDisabledDocuments(t *testing.T) {
	f := ByBase(9)
	assert.Equal(t, `metadata["baseId"] == "9" && metadata["isEnabled"] == "true"`, f.Expr())
}

func TestByDoc(t *testing.T) {
	assert.Equal(t, `metadata["docId"] == "5"`, ByDoc(5).Expr())
}

func TestIDIn(t *testing.T) {
	assert.Equal(t, `id in ["a", "b"]`, IDIn("a", "b").Expr())
	assert.True(t, IDIn().Empty())
}
