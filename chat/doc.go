// Package chat orchestrates a retrieval-augmented conversation turn.
//
// A turn runs: session resolution (find or create the conversation,
// enforce the knowledge base binding), best-effort retrieval, prompt
// assembly with bounded history, token streaming to the caller's emit
// callback, and asynchronous persistence of the user/assistant message
// pair into the conversation tree.
//
// Streaming and persistence are decoupled on purpose: persistence runs on
// a bounded worker pool after the answer has been delivered, serialized
// per conversation, and its failures are logged rather than surfaced —
// the user already has their answer.
package chat
