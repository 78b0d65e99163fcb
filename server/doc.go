// Package server exposes the chat and document pipelines over HTTP.
//
// The chat endpoint streams answers as server-sent events; document
// endpoints wrap the ingest pipeline in a JSON result envelope. The layer
// is deliberately thin: request decoding, error-to-status mapping, and
// request-scoped logging live here, everything else in the services.
package server
