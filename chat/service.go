package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/poiesic/lorebase/ai"
	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

// Request is one chat turn as received from the transport layer.
// BaseID zero means the request names no knowledge base.
type Request struct {
	ConversationID string
	BaseID         core.ID
	UserID         core.ID
	Query          string
}

// Retriever is the slice of the search package the chat service needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, baseID core.ID) []core.RetrievedChunk
}

// Service orchestrates chat turns.
type Service struct {
	sessions  *sessionManager
	messages  storage.MessageRepository
	retriever Retriever
	streamer  ai.ChatStreamer
	persister *Persister
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		s.sessions.logger = logger
		return nil
	}
}

// NewService creates a chat service.
func NewService(
	conversations storage.ConversationRepository,
	messages storage.MessageRepository,
	bases storage.KnowledgeBaseRepository,
	retriever Retriever,
	streamer ai.ChatStreamer,
	persister *Persister,
	ids *core.Snowflake,
	opts ...Option,
) (*Service, error) {
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if bases == nil {
		return nil, ErrBaseRepositoryRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if streamer == nil {
		return nil, ErrStreamerRequired
	}
	if persister == nil {
		return nil, ErrPersisterRequired
	}

	logger := slog.Default().With("component", "chat")
	s := &Service{
		sessions: &sessionManager{
			conversations: conversations,
			bases:         bases,
			ids:           ids,
			logger:        logger,
		},
		messages:  messages,
		retriever: retriever,
		streamer:  streamer,
		persister: persister,
		logger:    logger,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Stream runs one chat turn, delivering wire events through emit in order.
//
// Validation failures (blank query, base conflict, foreign knowledge base)
// return an error before any event is emitted, so the transport can still
// answer with an error status. Once events have started flowing, failures
// are delivered as a terminal error event and Stream returns nil — the
// response is already open.
//
// If emit returns an error the consumer is gone: generation stops and the
// fragments delivered so far are persisted as a partial answer.
func (s *Service) Stream(ctx context.Context, req Request, emit func(Event) error) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}

	sess, err := s.sessions.resolve(ctx, req)
	if err != nil {
		return err
	}
	conv := sess.conv

	var contextChunks []core.RetrievedChunk
	if sess.baseID != 0 {
		contextChunks = s.retriever.Retrieve(ctx, req.Query, sess.baseID)
	}

	history, err := s.history(ctx, conv)
	if err != nil {
		// Degrade to a history-free prompt; the turn is still answerable.
		s.logger.Error("error loading history", "conversationId", conv.ConversationID, "err", err)
		history = nil
	}

	turns := buildPrompt(req.Query, contextChunks, history)

	if sess.created {
		if err := emit(ConversationEvent(conv.ConversationID)); err != nil {
			return nil
		}
	}

	// The parent of this turn's user message is the current node as it was
	// before streaming started.
	parentNode := conv.CurrentNode

	var persisted atomic.Bool
	persist := func(response string) {
		if !persisted.CompareAndSwap(false, true) {
			return
		}
		s.persister.Submit(Turn{
			ConversationID: conv.ConversationID,
			ParentNode:     parentNode,
			Query:          req.Query,
			Response:       response,
		})
	}

	response, err := s.streamer.StreamChat(ctx, turns, func(_ context.Context, fragment string) error {
		return emit(ChunkEvent(fragment))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("error generating answer", "conversationId", conv.ConversationID, "err", err)
		persist(response)
		_ = emit(ErrorEvent("answer generation failed"))
		return nil
	}

	persist(response)
	_ = emit(DoneEvent())
	return nil
}

// history loads the ancestor chain of the conversation's current node,
// oldest first, bounded by historyLimit.
func (s *Service) history(ctx context.Context, conv *core.Conversation) ([]*core.Message, error) {
	var chain []*core.Message

	nodeID := conv.CurrentNode
	for nodeID != "" && len(chain) < historyLimit {
		msg, err := s.messages.GetMessage(ctx, conv.ConversationID, nodeID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, msg)
		nodeID = msg.Parent
	}

	// Walked leaf-to-root; the prompt wants oldest first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
