package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/core"
	"github.com/poiesic/lorebase/storage"
)

func testMessage(convID, id, parent string, role core.Role) *core.Message {
	return &core.Message{
		MessageID:      id,
		ConversationID: convID,
		Role:           role,
		Content:        "content of " + id,
		Parent:         parent,
	}
}

func TestMessageRoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	msg := testMessage("c1", "m1", "", core.RoleUser)
	require.NoError(t, repos.Messages.AddMessage(ctx, msg))

	got, err := repos.Messages.GetMessage(ctx, "c1", "m1")
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, got.Role)
	assert.Equal(t, "content of m1", got.Content)
	assert.Empty(t, got.Children)
}

func TestAddMessageRejectsDuplicate(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Messages.AddMessage(ctx, testMessage("c1", "m1", "", core.RoleUser)))
	err := repos.Messages.AddMessage(ctx, testMessage("c1", "m1", "", core.RoleUser))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAddMessageValidates(t *testing.T) {
	repos := newTestRepos(t)

	err := repos.Messages.AddMessage(context.Background(), &core.Message{
		MessageID:      "m1",
		ConversationID: "c1",
		Role:           core.RoleUser,
	})
	assert.ErrorIs(t, err, core.ErrInvalidMessage)
}

func TestAppendChildIsIdempotent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Messages.AddMessage(ctx, testMessage("c1", "m1", "", core.RoleUser)))
	require.NoError(t, repos.Messages.AddMessage(ctx, testMessage("c1", "m2", "m1", core.RoleAssistant)))

	require.NoError(t, repos.Messages.AppendChild(ctx, "c1", "m1", "m2"))
	require.NoError(t, repos.Messages.AppendChild(ctx, "c1", "m1", "m2"))
	require.NoError(t, repos.Messages.AppendChild(ctx, "c1", "m1", "m2"))

	parent, err := repos.Messages.GetMessage(ctx, "c1", "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, parent.Children)
}

func TestAppendChildUnknownParent(t *testing.T) {
	repos := newTestRepos(t)

	err := repos.Messages.AppendChild(context.Background(), "c1", "missing", "m2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListMessagesInCreationOrder(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	for i, id := range []string{"m1", "m2", "m3"} {
		msg := testMessage("c1", id, "", core.RoleUser)
		msg.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repos.Messages.AddMessage(ctx, msg))
	}
	// Another conversation's message must not leak into the listing.
	require.NoError(t, repos.Messages.AddMessage(ctx, testMessage("c2", "m9", "", core.RoleUser)))

	msgs, err := repos.Messages.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].MessageID)
	assert.Equal(t, "m3", msgs[2].MessageID)
}

func TestDeleteMessages(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Messages.AddMessage(ctx, testMessage("c1", "m1", "", core.RoleUser)))
	require.NoError(t, repos.Messages.AddMessage(ctx, testMessage("c1", "m2", "m1", core.RoleAssistant)))

	require.NoError(t, repos.Messages.DeleteMessages(ctx, "c1"))

	msgs, err := repos.Messages.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Unknown conversation is a no-op.
	require.NoError(t, repos.Messages.DeleteMessages(ctx, "c9"))
}
