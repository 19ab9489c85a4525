// Package web exposes the NoteFlow HTTP API: session endpoints for the
// sign-in views, owner-scoped note mutations, derived stats, and a per-user
// SSE stream carrying full collection snapshots.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"noteflow/internal/auth"
	"noteflow/internal/config"
	"noteflow/internal/store"
)

type Server struct {
	cfg    config.Config
	store  *store.Store
	tokens *auth.TokenIssuer
	google *auth.GoogleVerifier
	log    *slog.Logger
	router chi.Router
}

func NewServer(cfg config.Config, st *store.Store, log *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenIssuer(cfg.AuthSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		store:  st,
		tokens: tokens,
		google: auth.NewGoogleVerifier(cfg.GoogleClientID),
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.cors)
	s.router.Use(s.logRequests)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/google-login", s.handleGoogleLogin)
		r.Post("/refresh", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/session", s.handleSession)
			r.Put("/profile", s.handleProfile)

			r.Get("/notes", s.handleListNotes)
			r.Post("/notes", s.handleCreateNote)
			r.Put("/notes/{id}", s.handleUpdateNote)
			r.Delete("/notes/{id}", s.handleDeleteNote)
			r.Post("/notes/{id}/favorite", s.handleSetFavorite)

			r.Get("/stats", s.handleStats)
			r.Post("/preview", s.handlePreview)
			r.Get("/events", s.handleEvents)
		})
	})
}
