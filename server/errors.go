package server

import "errors"

var (
	// ErrChatServiceRequired is returned when a chat service is not provided.
	ErrChatServiceRequired = errors.New("chat service required")

	// ErrPipelineRequired is returned when an ingest pipeline is not provided.
	ErrPipelineRequired = errors.New("ingest pipeline required")
)
