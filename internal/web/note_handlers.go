package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"

	"noteflow/internal/mirror"
)

var mdRenderer = goldmark.New()

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	notes, err := s.store.NotesByOwner(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := s.store.CreateNote(r.Context(), userID, req.Title, req.Content)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := s.store.UpdateNote(r.Context(), userID, chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	if err := s.store.DeleteNote(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetFavorite applies the favorite flag as a partial update. The client
// dispatches the negation of the value it currently mirrors; the flipped note
// reaches every open view through the next snapshot push.
func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	var req struct {
		IsFavorite bool `json:"isFavorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := s.store.SetFavorite(r.Context(), userID, chi.URLParam(r, "id"), req.IsFavorite)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	notes, err := s.store.NotesByOwner(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mirror.ComputeStats(notes, time.Now()))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var b strings.Builder
	if err := mdRenderer.Convert([]byte(req.Content), &b); err != nil {
		s.log.Error("render preview", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"html": b.String()})
}
