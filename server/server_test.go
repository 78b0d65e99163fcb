package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/ai/mock"
	"github.com/poiesic/lorebase/chat"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/ingest"
	badgerstore "github.com/poiesic/lorebase/storage/badger"
	"github.com/poiesic/lorebase/vectorstore"
)

type staticRetriever struct {
	chunks []core.RetrievedChunk
}

func (r *staticRetriever) Retrieve(context.Context, string, core.ID) []core.RetrievedChunk {
	return r.chunks
}

type recordingIndexer struct {
	inserted []core.Chunk
	deleted  []string
	rows     []vectorstore.Row
}

func (f *recordingIndexer) Insert(_ context.Context, chunks []core.Chunk) error {
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *recordingIndexer) Delete(_ context.Context, filter vectorstore.Filter) (int64, error) {
	f.deleted = append(f.deleted, filter.Expr())
	return int64(len(f.inserted)), nil
}

func (f *recordingIndexer) Query(context.Context, vectorstore.Filter, int, int) ([]vectorstore.Row, error) {
	return f.rows, nil
}

type serverFixture struct {
	handler  http.Handler
	repos    *badgerstore.Repositories
	streamer *mock.MockChatStreamer
	indexer  *recordingIndexer
	baseID   core.ID
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	kb, err := repos.Bases.AddKnowledgeBase(context.Background(), &core.KnowledgeBase{UserID: 1, Name: "hr"})
	require.NoError(t, err)

	ids, err := core.NewSnowflake(1)
	require.NoError(t, err)

	persister, err := chat.NewPersister(repos.Conversations, repos.Messages, ids, 2, nil)
	require.NoError(t, err)
	t.Cleanup(persister.Close)

	streamer := mock.NewMockChatStreamer()
	chatService, err := chat.NewService(repos.Conversations, repos.Messages, repos.Bases,
		&staticRetriever{}, streamer, persister, ids)
	require.NoError(t, err)

	indexer := &recordingIndexer{}
	pipeline, err := ingest.NewPipeline(repos.Documents, repos.Bases, mock.NewMockEmbedder(), indexer)
	require.NoError(t, err)

	srv, err := NewServer(chatService, pipeline)
	require.NoError(t, err)

	return &serverFixture{
		handler:  srv.Routes(),
		repos:    repos,
		streamer: streamer,
		indexer:  indexer,
		baseID:   kb.BaseID,
	}
}

func decodeFrames(t *testing.T, body string) []chat.Event {
	t.Helper()
	var events []chat.Event
	for _, frame := range strings.Split(body, "\n\n") {
		frame = strings.TrimSpace(frame)
		if frame == "" {
			continue
		}
		require.True(t, strings.HasPrefix(frame, "data: "), "unexpected frame %q", frame)
		var event chat.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func (f *serverFixture) postMessage(t *testing.T, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/new/message", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestNewMessageStreams(t *testing.T) {
	f := newServerFixture(t)
	f.streamer.Fragments = []string{"The answer ", "is 42."}

	rec := f.postMessage(t, map[string]any{
		"baseId": f.baseID, "userId": 1, "query": "What is the answer?",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, chat.EventConversationID, events[0].Type)
	assert.NotEmpty(t, events[0].ConversationID)
	assert.Equal(t, "The answer ", events[1].Content)
	assert.Equal(t, "is 42.", events[2].Content)
	assert.Equal(t, chat.StatusAnswerDone, events[3].Message)
}

func TestNewMessageEmptyQuery(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postMessage(t, map[string]any{
		"baseId": f.baseID, "userId": 1, "query": "   ",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, chat.EventError, events[0].Type)
}

func TestNewMessageForeignBase(t *testing.T) {
	f := newServerFixture(t)

	rec := f.postMessage(t, map[string]any{
		"baseId": f.baseID, "userId": 99, "query": "hello",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	events := decodeFrames(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, chat.EventError, events[0].Type)
}

func TestNewMessageRejectsBadJSON(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/new/message", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func uploadRequest(t *testing.T, fileName, content string, baseID core.ID, userID int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("baseId", baseID.String()))
	require.NoError(t, mw.WriteField("userId", fmt.Sprintf("%d", userID)))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	f := newServerFixture(t)

	content := strings.Repeat("Vacation days accrue monthly for all staff. ", 20)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, uploadRequest(t, "policy.txt", content, f.baseID, 1))

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Code int `json:"code"`
		Data struct {
			DocID       core.ID `json:"docId"`
			Status      string  `json:"status"`
			TotalChunks int     `json:"totalChunks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, http.StatusOK, result.Code)
	assert.NotZero(t, result.Data.DocID)
	assert.Equal(t, "success", result.Data.Status)
	assert.Positive(t, result.Data.TotalChunks)
	assert.NotEmpty(t, f.indexer.inserted)
}

func TestUploadEmptyFileReportsFailure(t *testing.T) {
	f := newServerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, uploadRequest(t, "empty.txt", "", f.baseID, 1))

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Message string `json:"message"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "failure", result.Data.Status)
	// The envelope message carries the diagnosed cause, not "success".
	assert.Contains(t, result.Message, "no text could be extracted")
}

func TestUploadForeignBase(t *testing.T) {
	f := newServerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, uploadRequest(t, "policy.txt", "text", f.baseID, 99))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadMissingBaseID(t *testing.T) {
	f := newServerFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("userId", "1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func (f *serverFixture) ingestDoc(t *testing.T) core.ID {
	t.Helper()
	content := strings.Repeat("Vacation days accrue monthly for all staff. ", 20)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, uploadRequest(t, "policy.txt", content, f.baseID, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Data struct {
			DocID core.ID `json:"docId"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	return result.Data.DocID
}

func TestDeleteDocument(t *testing.T) {
	f := newServerFixture(t)
	docID := f.ingestDoc(t)

	url := fmt.Sprintf("/api/documents?docId=%d&userId=1", docID)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.indexer.deleted, 1)
	assert.Contains(t, f.indexer.deleted[0], docID.String())
}

func TestDeleteUnknownDocument(t *testing.T) {
	f := newServerFixture(t)

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/documents?docId=999&userId=1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListChunks(t *testing.T) {
	f := newServerFixture(t)
	docID := f.ingestDoc(t)
	f.indexer.rows = []vectorstore.Row{
		{ID: "1_0_abc", Content: "chunk one", Metadata: map[string]string{"docId": docID.String()}},
	}

	url := fmt.Sprintf("/api/documents/chunks?docId=%d&userId=1", docID)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Data []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Data, 1)
	assert.Equal(t, "chunk one", result.Data[0].Content)
}

func TestSetDocumentEnabled(t *testing.T) {
	f := newServerFixture(t)
	docID := f.ingestDoc(t)

	url := fmt.Sprintf("/api/documents/enabled?docId=%d&userId=1&enabled=false", docID)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url, nil))

	require.Equal(t, http.StatusOK, rec.Code)

	doc, err := f.repos.Documents.GetDocument(context.Background(), docID)
	require.NoError(t, err)
	assert.False(t, doc.IsEnabled)
}
