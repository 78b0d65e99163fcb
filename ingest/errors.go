package ingest

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrBaseRepositoryRequired is returned when a knowledge base repository is not provided.
	ErrBaseRepositoryRequired = errors.New("knowledge base repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexerRequired is returned when a vector indexer is not provided.
	ErrIndexerRequired = errors.New("vector indexer required")

	// ErrForeignKnowledgeBase is returned when the acting user does not own
	// the targeted knowledge base.
	ErrForeignKnowledgeBase = errors.New("knowledge base belongs to another user")

	// ErrNoExtractedText is returned when the parser produced no text for
	// the uploaded file.
	ErrNoExtractedText = errors.New("no text could be extracted from file")

	// ErrNoChunks is returned when the splitter produced no chunks from
	// extracted text.
	ErrNoChunks = errors.New("splitter produced no chunks")

	// ErrAllChunksEmpty is returned when every chunk was dropped during
	// sanitization.
	ErrAllChunksEmpty = errors.New("all chunks were empty after filtering")
)
