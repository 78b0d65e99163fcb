// Package ingest turns uploaded files into indexed, retrievable chunks.
//
// The pipeline runs extract -> split -> sanitize -> embed -> insert and
// records the outcome on the owning Document row: a document ends an upload
// attempt in exactly one of Success or Failure, with a diagnosed error on
// the failure path so operators can tell a parser problem from an index
// problem.
//
// Extraction is suffix-driven: PDF via a dedicated reader, everything else
// treated as UTF-8 text with control characters scrubbed. Splitting is
// token-bounded so chunk sizes line up with embedding model limits.
package ingest
