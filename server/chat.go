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

package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/poiesic/lorebase/chat"
	"github.com/poiesic/lorebase/core"
)

type messageRequest struct {
	ConversationID string  `json:"conversationId"`
	BaseID         core.ID `json:"baseId"`
	UserID         core.ID `json:"userId"`
	Query          string  `json:"query"`
}

// handleNewMessage streams a chat answer as server-sent events. Rejections
// that happen before any token is generated arrive as a single error frame
// with a non-200 status; once the stream has opened the status is already
// committed and failures become terminal error events.
func (s *Server) handleNewMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	opened := false
	emit := func(event chat.Event) error {
		if !opened {
			openStream(w, http.StatusOK)
			opened = true
		}
		return writeFrame(w, flusher, event)
	}

	err := s.chat.Stream(r.Context(), chat.Request{
		ConversationID: req.ConversationID,
		BaseID:         req.BaseID,
		UserID:         req.UserID,
		Query:          req.Query,
	}, emit)
	if err != nil && !opened {
		openStream(w, statusFor(err))
		_ = writeFrame(w, flusher, chat.ErrorEvent(err.Error()))
	}
}

func openStream(w http.ResponseWriter, status int) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(status)
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, event chat.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
