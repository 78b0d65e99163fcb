package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

const titleLimit = 30

// session is a resolved conversation for one turn. baseID is the effective
// knowledge base (request's, falling back to the conversation's binding);
// zero means the turn runs without retrieval.
type session struct {
	conv    *core.Conversation
	created bool
	baseID  core.ID
}

// sessionManager finds or creates conversations and enforces the knowledge
// base binding rules.
type sessionManager struct {
	conversations storage.ConversationRepository
	bases         storage.KnowledgeBaseRepository
	ids           *core.Snowflake
	logger        *slog.Logger
}

// resolve applies the session rules for one turn:
//
//   - no conversation ID: create a new conversation, bound to the request's
//     base (possibly unbound)
//   - ID found for this user: bind the base if the conversation is unbound;
//     if both bases are set and differ, fail with ErrBaseConflict and leave
//     the binding untouched
//   - ID found but owned by another user: fail with ErrForeignConversation
//   - ID not found: create the conversation with the client-supplied ID, so
//     a client whose first write was dropped can recover idempotently
//
// The effective base, when set, is verified against the owning user.
func (m *sessionManager) resolve(ctx context.Context, req Request) (*session, error) {
	if req.ConversationID == "" {
		return m.create(ctx, m.ids.NextString(), req)
	}

	conv, err := m.conversations.GetConversation(ctx, req.ConversationID)
	if errors.Is(err, storage.ErrNotFound) {
		return m.create(ctx, req.ConversationID, req)
	}
	if err != nil {
		return nil, err
	}

	// A conversation is only ever resolved for its owner. Another user
	// presenting the same ID must not see its history or append to its
	// tree, so the ID is treated as unknown for them.
	if conv.UserID != req.UserID {
		return nil, fmt.Errorf("%w: %s", ErrForeignConversation, req.ConversationID)
	}

	if req.BaseID != 0 && conv.Bound() && conv.BaseID != req.BaseID {
		return nil, fmt.Errorf("%w: bound to %d, requested %d", ErrBaseConflict, conv.BaseID, req.BaseID)
	}

	effective := conv.BaseID
	if req.BaseID != 0 {
		effective = req.BaseID
	}
	if err := m.checkOwnership(ctx, effective, req.UserID); err != nil {
		return nil, err
	}

	// First turn that names a base binds the conversation to it.
	if req.BaseID != 0 && !conv.Bound() {
		conv.BaseID = req.BaseID
		if err := m.conversations.UpdateConversation(ctx, conv); err != nil {
			return nil, err
		}
		m.logger.Info("conversation bound to knowledge base",
			"conversationId", conv.ConversationID, "baseId", req.BaseID)
	}

	return &session{conv: conv, baseID: effective}, nil
}

func (m *sessionManager) create(ctx context.Context, id string, req Request) (*session, error) {
	if err := m.checkOwnership(ctx, req.BaseID, req.UserID); err != nil {
		return nil, err
	}

	conv := &core.Conversation{
		ConversationID: id,
		UserID:         req.UserID,
		Title:          deriveTitle(req.Query),
		BaseID:         req.BaseID,
	}
	if err := m.conversations.AddConversation(ctx, conv); err != nil {
		return nil, err
	}

	m.logger.Info("conversation created",
		"conversationId", id, "baseId", req.BaseID, "userId", req.UserID)
	return &session{conv: conv, created: true, baseID: req.BaseID}, nil
}

func (m *sessionManager) checkOwnership(ctx context.Context, baseID, userID core.ID) error {
	if baseID == 0 {
		return nil
	}
	kb, err := m.bases.GetKnowledgeBase(ctx, baseID)
	if err != nil {
		return err
	}
	if kb.UserID != userID {
		return fmt.Errorf("%w: base %d", ErrForeignKnowledgeBase, baseID)
	}
	return nil
}

// deriveTitle uses the first words of the opening query as the title.
func deriveTitle(query string) string {
	title := strings.Join(strings.Fields(query), " ")
	runes := []rune(title)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit])
	}
	return title
}
