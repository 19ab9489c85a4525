package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"noteflow/internal/auth"
	"noteflow/internal/store"
)

const minPasswordLength = 6

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type identityResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	auth.TokenPair
	User identityResponse `json:"user"`
}

func identityOf(user store.User) identityResponse {
	return identityResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayLabel(),
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 6 characters")
		return
	}
	if req.ConfirmPassword != "" && req.ConfirmPassword != req.Password {
		writeError(w, http.StatusUnprocessableEntity, "passwords do not match")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	user, err := s.store.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("user registered", "user", user.ID)
	writeJSON(w, http.StatusCreated, identityOf(user))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) || (err == nil && !auth.VerifyPassword(user.PasswordHash, req.Password)) {
		// One message for unknown account and wrong password.
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.writeSession(w, user)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := s.google.Verify(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleToken) {
			writeError(w, http.StatusUnauthorized, "google sign-in failed")
			return
		}
		s.log.Error("google token verification", "err", err)
		writeError(w, http.StatusBadGateway, "google sign-in unavailable")
		return
	}

	user, err := s.store.EnsureGoogleUser(r.Context(), identity.Email, identity.Name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeSession(w, user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := s.tokens.VerifyRefresh(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		s.writeStoreError(w, err)
		return
	}

	s.writeSession(w, user)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identityOf(user))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeError(w, http.StatusUnprocessableEntity, "display name must not be blank")
		return
	}

	if err := s.store.SetDisplayName(r.Context(), userID, req.DisplayName); err != nil {
		s.writeStoreError(w, err)
		return
	}
	user, err := s.store.UserByID(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identityOf(user))
}

func (s *Server) writeSession(w http.ResponseWriter, user store.User) {
	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("issue tokens", "user", user.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{TokenPair: pair, User: identityOf(user)})
}
