package mock

import (
	"context"
	"strings"

	"github.com/poiesic/lorebase/ai"
)

// MockChatStreamer is a test double for ai.ChatStreamer.
// It allows custom behavior injection via function fields.
type MockChatStreamer struct {
	// StreamChatFunc is called by StreamChat if set.
	// If nil, uses default behavior driven by Fragments.
	StreamChatFunc func(ctx context.Context, turns []ai.ChatTurn, fn ai.StreamFunc) (string, error)

	// Fragments are streamed in order by the default behavior.
	// If empty, a single canned fragment is streamed.
	Fragments []string

	// Err, if set, is returned after all fragments are streamed,
	// simulating a mid-generation model failure.
	Err error

	callCount int
	lastTurns []ai.ChatTurn
}

// NewMockChatStreamer creates a mock chat streamer with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockChatStreamer() *MockChatStreamer {
	return &MockChatStreamer{}
}

// StreamChat streams the configured fragments through fn, honoring consumer
// stop requests the way a real streamer does.
func (m *MockChatStreamer) StreamChat(ctx context.Context, turns []ai.ChatTurn, fn ai.StreamFunc) (string, error) {
	m.callCount++
	m.lastTurns = append([]ai.ChatTurn(nil), turns...)

	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, turns, fn)
	}

	fragments := m.Fragments
	if len(fragments) == 0 {
		fragments = []string{"mock answer"}
	}

	var full strings.Builder
	for _, fragment := range fragments {
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		if fn != nil {
			if err := fn(ctx, fragment); err != nil {
				return full.String(), nil
			}
		}
	}
	return full.String(), m.Err
}

// CallCount returns the number of StreamChat invocations.
func (m *MockChatStreamer) CallCount() int {
	return m.callCount
}

// LastTurns returns the prompt passed to the most recent StreamChat call.
func (m *MockChatStreamer) LastTurns() []ai.ChatTurn {
	return m.lastTurns
}

// Reset clears call state and injected behavior.
func (m *MockChatStreamer) Reset() {
	m.callCount = 0
	m.lastTurns = nil
	m.StreamChatFunc = nil
	m.Fragments = nil
	m.Err = nil
}
