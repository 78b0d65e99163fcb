package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

func testDocument(baseID core.ID, name string) *core.Document {
	return &core.Document{
		BaseID:     baseID,
		DocName:    name,
		FileSuffix: "pdf",
		IsEnabled:  true,
		Status:     core.ParseStatusNone,
	}
}

func TestAddDocumentGeneratesID(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument(7, "handbook.pdf"))
	require.NoError(t, err)
	assert.NotZero(t, doc.DocID)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := repos.Documents.GetDocument(ctx, doc.DocID)
	require.NoError(t, err)
	assert.Equal(t, "handbook.pdf", got.DocName)
	assert.Equal(t, core.ParseStatusNone, got.Status)
}

func TestUpdateDocumentStatus(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument(7, "a.pdf"))
	require.NoError(t, err)

	require.NoError(t, doc.SetStatus(core.ParseStatusSuccess))
	doc.TotalChunks = 12
	require.NoError(t, repos.Documents.UpdateDocument(ctx, doc))

	got, err := repos.Documents.GetDocument(ctx, doc.DocID)
	require.NoError(t, err)
	assert.Equal(t, core.ParseStatusSuccess, got.Status)
	assert.Equal(t, 12, got.TotalChunks)
}

func TestListDocumentsByBase(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	_, err := repos.Documents.AddDocument(ctx, testDocument(7, "a.pdf"))
	require.NoError(t, err)
	_, err = repos.Documents.AddDocument(ctx, testDocument(7, "b.pdf"))
	require.NoError(t, err)
	_, err = repos.Documents.AddDocument(ctx, testDocument(9, "other.pdf"))
	require.NoError(t, err)

	docs, err := repos.Documents.ListDocumentsByBase(ctx, 7)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].DocName)
	assert.Equal(t, "b.pdf", docs[1].DocName)
}

func TestDeleteDocumentRemovesBaseIndex(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	doc, err := repos.Documents.AddDocument(ctx, testDocument(7, "a.pdf"))
	require.NoError(t, err)

	require.NoError(t, repos.Documents.DeleteDocument(ctx, doc.DocID))

	_, err = repos.Documents.GetDocument(ctx, doc.DocID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	docs, err := repos.Documents.ListDocumentsByBase(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestKnowledgeBaseLifecycle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	kb, err := repos.Bases.AddKnowledgeBase(ctx, &core.KnowledgeBase{UserID: 1, Name: "hr"})
	require.NoError(t, err)
	assert.NotZero(t, kb.BaseID)

	got, err := repos.Bases.GetKnowledgeBase(ctx, kb.BaseID)
	require.NoError(t, err)
	assert.Equal(t, "hr", got.Name)

	got.Name = "hr-policies"
	require.NoError(t, repos.Bases.UpdateKnowledgeBase(ctx, got))

	list, err := repos.Bases.ListKnowledgeBasesByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hr-policies", list[0].Name)

	require.NoError(t, repos.Bases.DeleteKnowledgeBase(ctx, kb.BaseID))
	_, err = repos.Bases.GetKnowledgeBase(ctx, kb.BaseID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
