package server

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/spigell/asha/internal/store"
	"go.uber.org/zap"
)

type signupRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email string `json:"email"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		Error(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	user, err := s.deps.Store.CreateUser(r.Context(), req.Name, req.Email)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		Error(w, http.StatusConflict, "email already registered")
		return
	case err != nil:
		s.logger.Error("signup failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	JSON(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		Error(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := s.deps.Store.UserByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		s.logger.Error("login failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	JSON(w, http.StatusOK, user)
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Store.UserByID(r.Context(), chi.URLParam(r, "userID"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		s.logger.Error("load user", zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	JSON(w, http.StatusOK, user)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	d, err := s.deps.Store.Dashboard(r.Context(), userID)
	if err != nil {
		s.logger.Error("load dashboard", zap.String("user_id", userID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	JSON(w, http.StatusOK, d)
}
