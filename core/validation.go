// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - DocID and BaseID must be non-zero
//   - DocName must not be empty
//   - Status must be a known ParseStatus
//
// NOT validated:
//   - TotalChunks (0 is valid before processing completes)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.DocID == 0 || doc.BaseID == 0 {
		return fmt.Errorf("%w: missing docId or baseId", ErrInvalidDocument)
	}

	if doc.DocName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocName)
	}

	switch doc.Status {
	case ParseStatusNone, ParseStatusSuccess, ParseStatusFailure:
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInvalidDocument, doc.Status)
	}

	return nil
}

// ValidateConversation validates a Conversation according to domain rules.
//
// Validation rules:
//   - ConversationID must not be empty
//   - UserID must be non-zero
//
// NOT validated:
//   - BaseID (0 means not yet bound to a knowledge base)
//   - CurrentNode ("" is valid until the first turn persists)
func ValidateConversation(conv *Conversation) error {
	if conv == nil {
		return fmt.Errorf("%w: conversation is nil", ErrInvalidConversation)
	}

	if conv.ConversationID == "" {
		return fmt.Errorf("%w: missing conversation ID", ErrInvalidConversation)
	}

	if conv.UserID == 0 {
		return fmt.Errorf("%w: missing user ID", ErrInvalidConversation)
	}

	return nil
}

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - MessageID and ConversationID must not be empty
//   - Content must not be empty
//   - Role must be valid (user or assistant)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.MessageID == "" || msg.ConversationID == "" {
		return fmt.Errorf("%w: missing identifier", ErrInvalidMessage)
	}

	if msg.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
