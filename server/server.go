package server

import (
	"log/slog"
	"net/http"

	"github.com/poiesic/lorebase/chat"
	"github.com/poiesic/lorebase/ingest"
)

// Server routes HTTP requests to the chat service and ingest pipeline.
type Server struct {
	chat     *chat.Service
	pipeline *ingest.Pipeline
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer creates the HTTP layer over the given services.
func NewServer(chatService *chat.Service, pipeline *ingest.Pipeline, opts ...Option) (*Server, error) {
	if chatService == nil {
		return nil, ErrChatServiceRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}

	s := &Server{
		chat:     chatService,
		pipeline: pipeline,
		logger:   slog.Default().With("component", "server"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Routes builds the handler tree with request logging applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/new/message", s.handleNewMessage)
	mux.HandleFunc("POST /api/documents/upload", s.handleUpload)
	mux.HandleFunc("DELETE /api/documents", s.handleDeleteDocument)
	mux.HandleFunc("GET /api/documents/chunks", s.handleChunks)
	mux.HandleFunc("POST /api/documents/enabled", s.handleSetEnabled)
	return withRequestLogging(mux, s.logger)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
