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

import "errors"

var (
	// ErrConversationRepositoryRequired is returned when a conversation repository is not provided.
	ErrConversationRepositoryRequired = errors.New("conversation repository required")

	// ErrMessageRepositoryRequired is returned when a message repository is not provided.
	ErrMessageRepositoryRequired = errors.New("message repository required")

	// ErrBaseRepositoryRequired is returned when a knowledge base repository is not provided.
	ErrBaseRepositoryRequired = errors.New("knowledge base repository required")

	// ErrStreamerRequired is returned when a chat streamer is not provided.
	ErrStreamerRequired = errors.New("chat streamer required")

	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrPersisterRequired is returned when a persister is not provided.
	ErrPersisterRequired = errors.New("persister required")

	// ErrEmptyQuery is returned for a blank chat query.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrBaseConflict is returned when a turn names a knowledge base other
	// than the one the conversation is already bound to.
	ErrBaseConflict = errors.New("cannot switch knowledge base mid-conversation")

	// ErrForeignKnowledgeBase is returned when the acting user does not own
	// the requested knowledge base.
	ErrForeignKnowledgeBase = errors.New("knowledge base belongs to another user")

	// ErrForeignConversation is returned when a turn names a conversation
	// owned by another user. Deliberately worded like a missing
	// conversation so the response does not confirm the ID exists.
	ErrForeignConversation = errors.New("conversation not found")
)
