package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lorebase/ai"
	"github.com/poiesic/lorebase/core"
)

func TestBuildPromptWithContext(t *testing.T) {
	turns := buildPrompt("question", []core.RetrievedChunk{
		{Content: "first chunk"},
		{Content: "second chunk"},
	}, nil)

	require.Len(t, turns, 2)
	assert.Equal(t, ai.RoleSystem, turns[0].Role)
	assert.Contains(t, turns[0].Content, "[1] first chunk")
	assert.Contains(t, turns[0].Content, "[2] second chunk")
	assert.Contains(t, turns[0].Content, "only the context")
	assert.Equal(t, "question", turns[1].Content)
}

func TestBuildPromptWithoutContext(t *testing.T) {
	turns := buildPrompt("question", nil, nil)

	require.Len(t, turns, 2)
	assert.Contains(t, turns[0].Content, "No relevant material")
	assert.NotContains(t, turns[0].Content, "[1]")
}

func TestBuildPromptTruncatesHistory(t *testing.T) {
	var history []*core.Message
	for i := 0; i < 8; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		history = append(history, &core.Message{Role: role, Content: strings.Repeat("x", i+1)})
	}

	turns := buildPrompt("question", nil, history)

	// system + 5 most recent + user
	require.Len(t, turns, 7)
	assert.Equal(t, strings.Repeat("x", 4), turns[1].Content)
	assert.Equal(t, strings.Repeat("x", 8), turns[5].Content)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "short question", deriveTitle("short   question"))

	long := strings.Repeat("a", 50)
	assert.Len(t, deriveTitle(long), titleLimit)
}
