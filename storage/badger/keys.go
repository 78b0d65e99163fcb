package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/lorebase/core"
)

// Key prefixes for different data types
const (
	conversationPrefix     = "convrec"
	conversationUserPrefix = "convusr"
	messagePrefix          = "msgrec"
	messageOrderPrefix     = "msgord"
	documentPrefix         = "docrec"
	documentBasePrefix     = "docbase"
	documentIDSeq          = "docrecseq"
	kbPrefix               = "kbrec"
	kbUserPrefix           = "kbusr"
	kbIDSeq                = "kbrecseq"
)

// makeConversationKey generates a key for a conversation by ID.
func makeConversationKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", conversationPrefix, id))
}

// makeConversationUserKey generates a composite key for the per-user index.
// Format: prefix:userID:conversationID
func makeConversationUserKey(userID core.ID, convID string) []byte {
	prefix := conversationUserPrefix + ":"
	buf := make([]byte, len(prefix)+8+len(convID))
	offset := copy(buf, prefix)
	// BigEndian so lexicographic sort groups a user's conversations
	binary.BigEndian.PutUint64(buf[offset:], uint64(userID))
	offset += 8
	copy(buf[offset:], convID)
	return buf
}

// makePartialConversationUserKey generates the per-user iteration prefix.
func makePartialConversationUserKey(userID core.ID) []byte {
	prefix := conversationUserPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(userID))
	return buf
}

// makeMessageKey generates a key for a message by conversation and ID.
func makeMessageKey(convID, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", messagePrefix, convID, id))
}

// makeMessagePrefix generates the per-conversation message iteration prefix.
func makeMessagePrefix(convID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", messagePrefix, convID))
}

// makeMessageOrderKey generates a composite key for the creation-order index.
// Format: prefix:conversationID:timestamp:messageID
func makeMessageOrderKey(convID string, createdAt time.Time, id string) []byte {
	prefix := fmt.Sprintf("%s:%s:", messageOrderPrefix, convID)
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// BigEndian so lexicographic sort matches chronological order
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makeMessageOrderPrefix generates the per-conversation order iteration prefix.
func makeMessageOrderPrefix(convID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", messageOrderPrefix, convID))
}

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", documentPrefix, id))
}

// makeDocumentBaseKey generates a composite key for the per-base index.
// Format: prefix:baseID:docID
func makeDocumentBaseKey(baseID, docID core.ID) []byte {
	prefix := documentBasePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// BigEndian so lexicographic sort orders by base then document
	binary.BigEndian.PutUint64(buf[offset:], uint64(baseID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(docID))
	return buf
}

// makePartialDocumentBaseKey generates the per-base iteration prefix.
func makePartialDocumentBaseKey(baseID core.ID) []byte {
	prefix := documentBasePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(baseID))
	return buf
}

// makeKnowledgeBaseKey generates a key for a knowledge base by ID.
func makeKnowledgeBaseKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", kbPrefix, id))
}

// makeKnowledgeBaseUserKey generates a composite key for the per-user index.
// Format: prefix:userID:baseID
func makeKnowledgeBaseUserKey(userID, baseID core.ID) []byte {
	prefix := kbUserPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(userID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(baseID))
	return buf
}

// makePartialKnowledgeBaseUserKey generates the per-user iteration prefix.
func makePartialKnowledgeBaseUserKey(userID core.ID) []byte {
	prefix := kbUserPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(userID))
	return buf
}
