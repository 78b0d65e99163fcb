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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContentDeterministic(t *testing.T) {
	a := IDFromContent("same text")
	b := IDFromContent("same text")
	c := IDFromContent("different text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotZero(t, a)
}

func TestSetStatusTransitions(t *testing.T) {
	doc := &Document{Status: ParseStatusNone}
	require.NoError(t, doc.SetStatus(ParseStatusSuccess))
	assert.Equal(t, ParseStatusSuccess, doc.Status)

	// A terminal status never reverts.
	err := doc.SetStatus(ParseStatusFailure)
	assert.ErrorIs(t, err, ErrStatusTransition)
	assert.Equal(t, ParseStatusSuccess, doc.Status)

	failed := &Document{Status: ParseStatusNone}
	require.NoError(t, failed.SetStatus(ParseStatusFailure))
	assert.ErrorIs(t, failed.SetStatus(ParseStatusSuccess), ErrStatusTransition)
}

func TestSetStatusRejectsNone(t *testing.T) {
	doc := &Document{Status: ParseStatusNone}
	assert.ErrorIs(t, doc.SetStatus(ParseStatusNone), ErrStatusTransition)
}

func TestConversationBound(t *testing.T) {
	conv := &Conversation{}
	assert.False(t, conv.Bound())

	conv.BaseID = 7
	assert.True(t, conv.Bound())
}

func TestChunkMetaDocument(t *testing.T) {
	meta := ChunkMeta{
		DocID:      7,
		BaseID:     3,
		FileName:   "guide.pdf",
		ChunkIndex: 2,
		IsEnabled:  true,
		Extra: map[string]any{
			"author": "poiesic",
			// Extra entries never shadow lineage fields.
			MetaKeyDocID: "shadowed",
		},
	}

	doc := meta.Document()
	assert.Equal(t, "7", doc[MetaKeyDocID])
	assert.Equal(t, "3", doc[MetaKeyBaseID])
	assert.Equal(t, "guide.pdf", doc[MetaKeyFileName])
	assert.Equal(t, "2", doc[MetaKeyChunkIndex])
	assert.Equal(t, "true", doc[MetaKeyIsEnabled])
	assert.Equal(t, "poiesic", doc["author"])
}

func TestValidateDocument(t *testing.T) {
	valid := &Document{DocID: 1, BaseID: 2, DocName: "a.txt", Status: ParseStatusNone}
	require.NoError(t, ValidateDocument(valid))

	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)
	assert.ErrorIs(t, ValidateDocument(&Document{BaseID: 2, DocName: "a", Status: ParseStatusNone}), ErrInvalidDocument)
	assert.ErrorIs(t, ValidateDocument(&Document{DocID: 1, BaseID: 2, Status: ParseStatusNone}), ErrEmptyDocName)
	assert.ErrorIs(t, ValidateDocument(&Document{DocID: 1, BaseID: 2, DocName: "a", Status: 42}), ErrInvalidDocument)
}

func TestValidateConversation(t *testing.T) {
	require.NoError(t, ValidateConversation(&Conversation{ConversationID: "c1", UserID: 1}))
	// Unbound conversations with no current node are valid.
	require.NoError(t, ValidateConversation(&Conversation{ConversationID: "c2", UserID: 1, BaseID: 0}))

	assert.ErrorIs(t, ValidateConversation(nil), ErrInvalidConversation)
	assert.ErrorIs(t, ValidateConversation(&Conversation{UserID: 1}), ErrInvalidConversation)
	assert.ErrorIs(t, ValidateConversation(&Conversation{ConversationID: "c3"}), ErrInvalidConversation)
}

func TestValidateMessage(t *testing.T) {
	valid := &Message{MessageID: "m1", ConversationID: "c1", Role: RoleUser, Content: "hi"}
	require.NoError(t, ValidateMessage(valid))

	assert.ErrorIs(t, ValidateMessage(nil), ErrInvalidMessage)
	assert.ErrorIs(t, ValidateMessage(&Message{ConversationID: "c1", Role: RoleUser, Content: "hi"}), ErrInvalidMessage)
	assert.ErrorIs(t, ValidateMessage(&Message{MessageID: "m1", ConversationID: "c1", Role: RoleUser}), ErrEmptyContent)
	assert.ErrorIs(t, ValidateMessage(&Message{MessageID: "m1", ConversationID: "c1", Role: 9, Content: "hi"}), ErrInvalidRole)
}
