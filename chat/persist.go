// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

const (
	defaultPersistWorkers = 3
	maxPersistWorkers     = 5
	persistTimeout        = 30 * time.Second
)

// Turn is one completed chat exchange handed to the persister.
// ParentNode is the conversation's current node as captured before the
// turn started streaming.
type Turn struct {
	ConversationID string
	ParentNode     string
	Query          string
	Response       string
}

// Persister appends completed turns into conversation trees off the
// streaming critical path. Work runs on a bounded pool; when the pool is
// saturated the submitting goroutine runs the append itself rather than
// dropping it. Appends for the same conversation are serialized by a keyed
// mutex so concurrent turns cannot corrupt the tree.
type Persister struct {
	conversations storage.ConversationRepository
	messages      storage.MessageRepository
	pool          *ants.Pool
	locks         *keyedMutex
	ids           *core.Snowflake
	logger        *slog.Logger
}

// NewPersister creates a persister over the given repositories.
// Workers are clamped to [1, 5].
func NewPersister(
	conversations storage.ConversationRepository,
	messages storage.MessageRepository,
	ids *core.Snowflake,
	workers int,
	logger *slog.Logger,
) (*Persister, error) {
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if workers < 1 {
		workers = defaultPersistWorkers
	}
	if workers > maxPersistWorkers {
		workers = maxPersistWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	return &Persister{
		conversations: conversations,
		messages:      messages,
		pool:          pool,
		locks:         newKeyedMutex(),
		ids:           ids,
		logger:        logger.With("component", "chat.persist"),
	}, nil
}

// Close releases the worker pool.
func (p *Persister) Close() {
	p.pool.Release()
}

// Submit schedules a turn for persistence. An empty response is a no-op:
// there is nothing worth appending to the tree. Pool saturation falls back
// to running the append on the calling goroutine.
func (p *Persister) Submit(turn Turn) {
	if turn.Response == "" {
		return
	}

	err := p.pool.Submit(func() { p.persist(turn) })
	if errors.Is(err, ants.ErrPoolOverload) {
		p.logger.Warn("persistence pool saturated, running on caller",
			"conversationId", turn.ConversationID)
		p.persist(turn)
		return
	}
	if err != nil {
		p.logger.Error("error submitting persistence task",
			"conversationId", turn.ConversationID, "err", err)
	}
}

// Wait blocks until no persistence work is running. Test helper.
func (p *Persister) Wait() {
	for p.pool.Running() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// persist appends the turn's message pair and advances the tree pointer:
// user message under the captured parent, assistant message under the user
// message, children patched idempotently, then currentNode. Failures are
// logged only; the streamed answer has already been delivered.
func (p *Persister) persist(turn Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	unlock := p.locks.lock(turn.ConversationID)
	defer unlock()

	logger := p.logger.With("conversationId", turn.ConversationID)

	userMsg := &core.Message{
		MessageID:      p.ids.NextString(),
		ConversationID: turn.ConversationID,
		Role:           core.RoleUser,
		Content:        turn.Query,
		Parent:         turn.ParentNode,
	}
	if err := p.messages.AddMessage(ctx, userMsg); err != nil {
		logger.Error("error persisting user message", "err", err)
		return
	}

	assistantMsg := &core.Message{
		MessageID:      p.ids.NextString(),
		ConversationID: turn.ConversationID,
		Role:           core.RoleAssistant,
		Content:        turn.Response,
		Parent:         userMsg.MessageID,
	}
	if err := p.messages.AddMessage(ctx, assistantMsg); err != nil {
		logger.Error("error persisting assistant message", "err", err)
		return
	}

	if turn.ParentNode != "" {
		if err := p.messages.AppendChild(ctx, turn.ConversationID, turn.ParentNode, userMsg.MessageID); err != nil {
			logger.Error("error linking user message to parent", "err", err)
			return
		}
	}
	if err := p.messages.AppendChild(ctx, turn.ConversationID, userMsg.MessageID, assistantMsg.MessageID); err != nil {
		logger.Error("error linking assistant message to user message", "err", err)
		return
	}

	if err := p.conversations.SetCurrentNode(ctx, turn.ConversationID, assistantMsg.MessageID); err != nil {
		logger.Error("error advancing current node", "err", err)
		return
	}

	logger.Debug("turn persisted",
		"userMessageId", userMsg.MessageID, "assistantMessageId", assistantMsg.MessageID)
}

// keyedMutex serializes work per string key with refcounted entries so the
// map does not grow with every conversation ever seen.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
