package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for numeric domain entities
// (knowledge bases, documents, users).
type ID uint64

// String renders the ID the way it is stored in index metadata.
func (id ID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces the same ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ParseStatus tracks the ingestion lifecycle of a document.
// A document transitions None -> Success or None -> Failure exactly once
// per upload attempt and never reverts.
type ParseStatus int

const (
	// ParseStatusNone means the document has been registered but not processed.
	ParseStatusNone ParseStatus = iota + 1
	// ParseStatusSuccess means ingestion completed and chunks are indexed.
	ParseStatusSuccess
	// ParseStatusFailure means ingestion aborted; no usable chunks exist.
	ParseStatusFailure
)

// String returns the wire representation of the status.
func (s ParseStatus) String() string {
	switch s {
	case ParseStatusNone:
		return "none"
	case ParseStatusSuccess:
		return "success"
	case ParseStatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Role identifies the author of a conversation message.
type Role int

const (
	// RoleUser represents the human asking the question.
	RoleUser Role = iota + 1
	// RoleAssistant represents the generated answer.
	RoleAssistant
)

// String returns the wire representation of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Document is the ingestion-owned lifecycle record for an uploaded file.
type Document struct {
	DocID       ID
	BaseID      ID
	DocName     string
	FileSuffix  string
	IsEnabled   bool
	Status      ParseStatus
	TotalChunks int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetStatus applies a lifecycle transition. Only None -> Success and
// None -> Failure are legal; anything else returns ErrStatusTransition.
func (d *Document) SetStatus(next ParseStatus) error {
	if d.Status != ParseStatusNone || next == ParseStatusNone {
		return fmt.Errorf("%w: %d -> %d", ErrStatusTransition, d.Status, next)
	}
	d.Status = next
	return nil
}

// KnowledgeBase is the ownership record the chat and ingestion cores
// validate against. Full CRUD lives outside the core.
type KnowledgeBase struct {
	BaseID    ID
	UserID    ID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Conversation groups a tree of messages for one user.
// BaseID zero means the conversation is not yet bound to a knowledge base;
// once bound it is immutable unless re-specified with the same value.
// CurrentNode points at the most recently appended message, or "" for a
// conversation with no persisted turns.
type Conversation struct {
	ConversationID string
	UserID         ID
	Title          string
	BaseID         ID
	CurrentNode    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bound reports whether the conversation is tied to a knowledge base.
func (c *Conversation) Bound() bool {
	return c.BaseID != 0
}

// Message is one node of a conversation tree. Parent is "" for roots.
// For every message m with a non-empty parent p, p.Children contains
// m.MessageID exactly once.
type Message struct {
	MessageID      string
	ConversationID string
	Role           Role
	Content        string
	Parent         string
	Children       []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChunkMeta is the fixed metadata schema carried by every indexed chunk.
// Extra holds open-ended metadata from upstream parsers; it is sanitized
// before indexing because the index rejects null scalar fields.
type ChunkMeta struct {
	DocID      ID
	BaseID     ID
	FileName   string
	ChunkIndex int
	IsEnabled  bool
	Extra      map[string]any
}

// Document renders the metadata as the JSON document stored in the index.
// Lineage fields are always strings; the index compares metadata as strings.
// Extra entries are merged in and never shadow lineage fields.
func (m ChunkMeta) Document() map[string]any {
	doc := make(map[string]any, len(m.Extra)+5)
	for k, v := range m.Extra {
		doc[k] = v
	}
	doc[MetaKeyDocID] = m.DocID.String()
	doc[MetaKeyBaseID] = m.BaseID.String()
	doc[MetaKeyFileName] = m.FileName
	doc[MetaKeyChunkIndex] = fmt.Sprintf("%d", m.ChunkIndex)
	doc[MetaKeyIsEnabled] = fmt.Sprintf("%t", m.IsEnabled)
	return doc
}

// Metadata keys recognized by the retrieval filter grammar.
const (
	MetaKeyDocID      = "docId"
	MetaKeyBaseID     = "baseId"
	MetaKeyFileName   = "fileName"
	MetaKeyChunkIndex = "chunkIndex"
	MetaKeyIsEnabled  = "isEnabled"
)

// Chunk is the atomic unit stored in the vector index: a unit of split
// document text plus its embedding and metadata.
type Chunk struct {
	ID      string
	Content string
	Vector  []float32
	Meta    ChunkMeta
}

// RetrievedChunk is a search hit returned to retrieval callers.
// Meta values are strings, matching the index's storage contract.
type RetrievedChunk struct {
	ID      string
	Content string
	Score   float32
	Meta    map[string]string
}
