// Package reindex regenerates the embeddings of already-indexed chunks.
//
// After an embedding model change, stored vectors no longer live in the
// same space as fresh query embeddings and retrieval quality collapses.
// The Reindexer walks a knowledge base page by page, re-embeds chunk
// contents in batches with retry, and swaps each page's rows in the index
// by id. Chunk ids, contents and metadata are preserved; only vectors
// change.
package reindex
