// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.ChatStreamer,
// and ai.Provider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vec, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	streamer := mock.NewMockChatStreamer()
//	streamer.Fragments = []string{"streamed ", "answer"}
//
//	// Check call counts
//	count := streamer.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: returns deterministic vectors based on text hash
//   - MockChatStreamer: streams configured fragments, or a canned answer
//   - MockProvider: aggregates mock embedder and streamer
package mock
