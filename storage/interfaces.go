package storage

import (
	"context"

	"github.com/poiesic/lorebase/core"
)

// Repository provides operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases repository resources. The backend is closed separately.
	Close() error
}

// ConversationRepository provides operations for conversation records.
// Conversation IDs are caller-supplied snowflake strings; this repository
// never generates them.
type ConversationRepository interface {
	Repository
	// AddConversation stores a new conversation.
	// Sets CreatedAt and UpdatedAt if not already set.
	// Returns ErrDuplicateKey if the ID is already in use.
	AddConversation(ctx context.Context, conv *core.Conversation) error

	// GetConversation retrieves a conversation by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)

	// UpdateConversation replaces an existing conversation record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the conversation doesn't exist.
	UpdateConversation(ctx context.Context, conv *core.Conversation) error

	// SetCurrentNode advances the conversation's current node pointer.
	// Returns ErrNotFound if the conversation doesn't exist.
	SetCurrentNode(ctx context.Context, id, nodeID string) error

	// DeleteConversation removes a conversation record.
	// Messages are removed separately via MessageRepository.
	// Returns ErrNotFound if the conversation doesn't exist.
	DeleteConversation(ctx context.Context, id string) error

	// ListConversationsByUser retrieves a user's conversations ordered by
	// UpdatedAt descending, most recently active first.
	ListConversationsByUser(ctx context.Context, userID core.ID) ([]*core.Conversation, error)
}

// MessageRepository provides operations for the nodes of conversation trees.
type MessageRepository interface {
	Repository
	// AddMessage stores a new message node.
	// Sets CreatedAt and UpdatedAt if not already set.
	// Returns ErrDuplicateKey if the (conversation, message) pair exists.
	AddMessage(ctx context.Context, msg *core.Message) error

	// GetMessage retrieves a message by conversation and message ID.
	// Returns ErrNotFound if it doesn't exist.
	GetMessage(ctx context.Context, convID, id string) (*core.Message, error)

	// UpdateMessage replaces an existing message record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the message doesn't exist.
	UpdateMessage(ctx context.Context, msg *core.Message) error

	// AppendChild adds childID to the parent's Children list.
	// Idempotent: appending an already-linked child is a no-op, so the
	// child appears exactly once however often persistence retries.
	// Returns ErrNotFound if the parent doesn't exist.
	AppendChild(ctx context.Context, convID, parentID, childID string) error

	// ListMessages retrieves all messages of a conversation ordered by
	// creation time ascending.
	ListMessages(ctx context.Context, convID string) ([]*core.Message, error)

	// DeleteMessages removes every message of a conversation.
	// Deleting messages of an unknown conversation is a no-op.
	DeleteMessages(ctx context.Context, convID string) error
}

// DocumentRepository provides operations for document lifecycle records.
type DocumentRepository interface {
	Repository
	// AddDocument stores a new document record.
	// For documents with DocID=0, generates a new ID from sequence.
	// Sets CreatedAt and UpdatedAt if not already set.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument replaces an existing document record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocumentsByBase retrieves all documents of a knowledge base,
	// ordered by document ID ascending.
	ListDocumentsByBase(ctx context.Context, baseID core.ID) ([]*core.Document, error)

	// DeleteDocument removes a document record and its base index entry.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error
}

// KnowledgeBaseRepository provides operations for knowledge base records.
type KnowledgeBaseRepository interface {
	Repository
	// AddKnowledgeBase stores a new knowledge base.
	// For bases with BaseID=0, generates a new ID from sequence.
	// Sets CreatedAt and UpdatedAt if not already set.
	AddKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) (*core.KnowledgeBase, error)

	// GetKnowledgeBase retrieves a knowledge base by ID.
	// Returns ErrNotFound if it doesn't exist.
	GetKnowledgeBase(ctx context.Context, id core.ID) (*core.KnowledgeBase, error)

	// UpdateKnowledgeBase replaces an existing knowledge base record.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the base doesn't exist.
	UpdateKnowledgeBase(ctx context.Context, kb *core.KnowledgeBase) error

	// DeleteKnowledgeBase removes a knowledge base record.
	// Documents are removed separately via DocumentRepository.
	// Returns ErrNotFound if the base doesn't exist.
	DeleteKnowledgeBase(ctx context.Context, id core.ID) error

	// ListKnowledgeBasesByUser retrieves a user's bases ordered by ID.
	ListKnowledgeBasesByUser(ctx context.Context, userID core.ID) ([]*core.KnowledgeBase, error)
}
