package search

import "github.com/poiesic/lorebase/core"

// RetrievalMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps during a search.
type RetrievalMonitor interface {
	Start(query string, baseID core.ID)
	AfterEmbedding(dimensions int)
	AfterPrimarySearch(hits int)
	FallbackTriggered(threshold float32)
	Finish(results []core.RetrievedChunk)
}

// noopMonitor is a no-op implementation of RetrievalMonitor
type noopMonitor struct{}

var _ RetrievalMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.ID)      {}
func (n *noopMonitor) AfterEmbedding(_ int)           {}
func (n *noopMonitor) AfterPrimarySearch(_ int)       {}
func (n *noopMonitor) FallbackTriggered(_ float32)    {}
func (n *noopMonitor) Finish(_ []core.RetrievedChunk) {}
