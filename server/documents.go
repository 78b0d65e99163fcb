package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/poiesic/lorebase/core"
)

const maxUploadBytes = 64 << 20

// handleUpload ingests one uploaded file into a knowledge base. The
// document row is created even when parsing fails; a failed parse reports
// the document in Failure status rather than an error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	baseID, err := formID(r, "baseId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := formID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err))
		return
	}

	doc, err := s.pipeline.Process(r.Context(), data, header.Filename, baseID, userID)
	if err != nil && doc == nil {
		writeError(w, statusFor(err), err)
		return
	}

	view := map[string]any{
		"docId":       doc.DocID,
		"docName":     doc.DocName,
		"status":      doc.Status.String(),
		"totalChunks": doc.TotalChunks,
	}
	if err != nil {
		// The document row exists in Failure status; the envelope carries
		// the diagnosed cause so operators see why without reading logs.
		writeJSON(w, http.StatusOK, Result{Code: http.StatusOK, Message: err.Error(), Data: view})
		return
	}
	writeResult(w, view)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID, err := queryID(r, "docId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.pipeline.DeleteDocument(r.Context(), docID, userID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeResult(w, nil)
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	docID, err := queryID(r, "docId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	rows, err := s.pipeline.Chunks(r.Context(), docID, limit, offset, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	type chunkView struct {
		ID       string            `json:"id"`
		Content  string            `json:"content"`
		Metadata map[string]string `json:"metadata"`
	}
	views := make([]chunkView, len(rows))
	for i, row := range rows {
		views[i] = chunkView{ID: row.ID, Content: row.Content, Metadata: row.Metadata}
	}
	writeResult(w, views)
}

func (s *Server) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	docID, err := queryID(r, "docId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := queryID(r, "userId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("enabled must be a boolean"))
		return
	}

	if err := s.pipeline.SetDocumentEnabled(r.Context(), docID, enabled, userID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeResult(w, nil)
}

func formID(r *http.Request, name string) (core.ID, error) {
	return parseID(r.FormValue(name), name)
}

func queryID(r *http.Request, name string) (core.ID, error) {
	return parseID(r.URL.Query().Get(name), name)
}

func parseID(raw, name string) (core.ID, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return core.ID(id), nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
