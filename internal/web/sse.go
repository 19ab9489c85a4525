package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const ssePingInterval = 25 * time.Second

// handleEvents streams the authenticated user's collection over SSE with
// full-replace semantics: a complete snapshot immediately, another after
// every change-feed notification. The browser mirror swaps its list for
// whatever arrives; there is no incremental patching on either side.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	userID, _ := CurrentUserID(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, cancel := s.store.Watch(userID)
	defer cancel()

	s.sendSnapshot(r.Context(), w, flusher, userID)

	ticker := time.NewTicker(ssePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			s.sendSnapshot(r.Context(), w, flusher, userID)
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// sendSnapshot writes one snapshot event. A failed load is logged and skipped;
// the client keeps rendering its last snapshot until the next push.
func (s *Server) sendSnapshot(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, userID string) {
	notes, err := s.store.NotesByOwner(ctx, userID)
	if err != nil {
		s.log.Warn("snapshot load failed", "user", userID, "err", err)
		return
	}
	data, err := json.Marshal(notes)
	if err != nil {
		s.log.Warn("snapshot encode failed", "user", userID, "err", err)
		return
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
	flusher.Flush()
}
