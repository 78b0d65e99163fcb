// Package storage defines the repository interfaces for conversation,
// message, document and knowledge base records, plus the binary
// serialization helpers shared by backends.
//
// Vectors never pass through this package: embedded chunks live in the
// vector index behind the vectorstore gateway. This package owns the
// relational side of the system, including the conversation tree whose
// nodes the chat service walks and patches.
//
// The canonical backend is BadgerDB (subpackage badger). Repositories are
// safe for concurrent use; cross-record invariants such as the
// parent/children link of the message tree are maintained by the callers
// that own them.
package storage
