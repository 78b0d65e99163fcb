package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/ai/mock"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/vectorstore"
)

// fakeGateway scripts successive Search responses.
type fakeGateway struct {
	calls      int
	thresholds []float32
	responses  [][]core.RetrievedChunk
	err        error
}

func (f *fakeGateway) Search(_ context.Context, _ []float32, _ vectorstore.Filter, _ int, threshold float32) ([]core.RetrievedChunk, error) {
	f.calls++
	f.thresholds = append(f.thresholds, threshold)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func newTestSearcher(t *testing.T, gateway *fakeGateway, opts ...Option) *Searcher {
	t.Helper()
	s, err := NewSearcher(gateway, mock.NewMockEmbedder(), opts...)
	require.NoError(t, err)
	return s
}

func TestRetrieveReturnsPrimaryHits(t *testing.T) {
	gateway := &fakeGateway{responses: [][]core.RetrievedChunk{
		{{ID: "c1", Content: "vacation policy", Score: 0.9}},
	}}
	s := newTestSearcher(t, gateway)

	results := s.Retrieve(context.Background(), "how many vacation days", 7)

	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ID)
	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, []float32{defaultPrimaryThreshold}, gateway.thresholds)
}

func TestRetrieveFallsBackExactlyOnce(t *testing.T) {
	gateway := &fakeGateway{responses: [][]core.RetrievedChunk{
		nil,
		{{ID: "c1", Score: 0.6}},
	}}
	s := newTestSearcher(t, gateway)

	results := s.Retrieve(context.Background(), "query", 7)

	require.Len(t, results, 1)
	assert.Equal(t, 2, gateway.calls)
	assert.Equal(t, []float32{defaultPrimaryThreshold, defaultFallbackThreshold}, gateway.thresholds)
}

func TestRetrieveNoFallbackWhenDisabled(t *testing.T) {
	gateway := &fakeGateway{}
	s := newTestSearcher(t, gateway, WithThresholds(0.7, 0.7))

	results := s.Retrieve(context.Background(), "query", 7)

	assert.Empty(t, results)
	assert.Equal(t, 1, gateway.calls)
}

func TestRetrieveEmptyOnGatewayError(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("index down")}
	s := newTestSearcher(t, gateway)

	results := s.Retrieve(context.Background(), "query", 7)

	assert.Empty(t, results)
	assert.Equal(t, 1, gateway.calls)
}

func TestRetrieveEmptyOnEmbeddingError(t *testing.T) {
	gateway := &fakeGateway{}
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("embedding service down")
	}
	s, err := NewSearcher(gateway, embedder)
	require.NoError(t, err)

	results := s.Retrieve(context.Background(), "query", 7)

	assert.Empty(t, results)
	assert.Equal(t, 0, gateway.calls)
}

func TestWithThresholdsRejectsInvertedPair(t *testing.T) {
	_, err := NewSearcher(&fakeGateway{}, mock.NewMockEmbedder(), WithThresholds(0.5, 0.8))
	assert.ErrorIs(t, err, ErrInvalidThresholds)
}

type recordingMonitor struct {
	started  bool
	fallback bool
	finished int
}

func (m *recordingMonitor) Start(_ string, _ core.ID)      {}
func (m *recordingMonitor) AfterEmbedding(_ int)           { m.started = true }
func (m *recordingMonitor) AfterPrimarySearch(_ int)       {}
func (m *recordingMonitor) FallbackTriggered(_ float32)    { m.fallback = true }
func (m *recordingMonitor) Finish(r []core.RetrievedChunk) { m.finished = len(r) }

func TestRetrieveWithMonitor(t *testing.T) {
	gateway := &fakeGateway{responses: [][]core.RetrievedChunk{
		nil,
		{{ID: "c1", Score: 0.6}},
	}}
	s := newTestSearcher(t, gateway)

	monitor := &recordingMonitor{}
	s.RetrieveWithMonitor(context.Background(), "query", 7, monitor)

	assert.True(t, monitor.started)
	assert.True(t, monitor.fallback)
	assert.Equal(t, 1, monitor.finished)
}
