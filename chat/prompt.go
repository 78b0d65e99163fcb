package chat

import (
	"fmt"
	"strings"

	"github.com/poiesic/lorebase/ai"
	"github.com/poiesic/lorebase/core"
)

// historyLimit bounds how many prior messages an assembled prompt carries.
const historyLimit = 5

const groundedPrompt = `You are a knowledgeable assistant answering questions about the user's documents.

Context from the knowledge base:
%s

Rules:
- Answer using only the context above.
- If the context does not contain enough information to answer, say so explicitly.
- When possible, indicate which part of the context supports your answer.`

const noContextPrompt = `You are a knowledgeable assistant answering questions about the user's documents.

No relevant material was found in the knowledge base for this question. Tell the user that nothing relevant was found and suggest they rephrase or refine the question.`

// buildPrompt assembles the full turn list: system prompt, up to the last
// five prior messages oldest first, then the user's new question.
func buildPrompt(query string, contextChunks []core.RetrievedChunk, history []*core.Message) []ai.ChatTurn {
	turns := make([]ai.ChatTurn, 0, len(history)+2)
	turns = append(turns, ai.ChatTurn{Role: ai.RoleSystem, Content: systemPrompt(contextChunks)})

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, msg := range history {
		turns = append(turns, ai.ChatTurn{Role: roleName(msg.Role), Content: msg.Content})
	}

	turns = append(turns, ai.ChatTurn{Role: ai.RoleUser, Content: query})
	return turns
}

func systemPrompt(chunks []core.RetrievedChunk) string {
	if len(chunks) == 0 {
		return noContextPrompt
	}

	var b strings.Builder
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(chunk.Content))
	}
	return fmt.Sprintf(groundedPrompt, strings.TrimSpace(b.String()))
}

func roleName(role core.Role) string {
	if role == core.RoleAssistant {
		return ai.RoleAssistant
	}
	return ai.RoleUser
}
