package chat

// Event is one frame of the streaming wire protocol. Events are JSON
// objects; marshaling supplies all escaping of fragment content.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Event types on the wire.
const (
	EventConversationID = "conversation_id"
	EventAnswerChunk    = "answer_chunk"
	EventStatus         = "status"
	EventError          = "error"
)

// StatusAnswerDone is the terminal status message of a successful stream.
const StatusAnswerDone = "ANSWER_DONE"

// ConversationEvent announces a newly created conversation's ID.
// Emitted once, before any answer content, and only for new conversations.
func ConversationEvent(id string) Event {
	return Event{Type: EventConversationID, ConversationID: id}
}

// ChunkEvent carries one generated answer fragment.
func ChunkEvent(content string) Event {
	return Event{Type: EventAnswerChunk, Content: content}
}

// DoneEvent is the terminal event of a successful stream.
func DoneEvent() Event {
	return Event{Type: EventStatus, Message: StatusAnswerDone}
}

// ErrorEvent replaces DoneEvent when generation fails after the stream
// has opened.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
