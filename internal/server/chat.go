package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spigell/asha/internal/chat"
	"github.com/spigell/asha/internal/jobs"
	"go.uber.org/zap"
)

type chatRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

type mentorshipRequest struct {
	UserID        string `json:"user_id"`
	InterestField string `json:"interest_field"`
}

func (s *Server) postChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.deps.Chat.Handle(r.Context(), req.UserID, req.Query)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "query must not be empty")
		return
	case err != nil:
		s.logger.Error("chat failed", zap.String("user_id", req.UserID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "chat is temporarily unavailable")
		return
	}

	JSON(w, http.StatusOK, reply)
}

func (s *Server) sessionHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	entries, err := s.deps.Store.SessionMessages(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("load session history", zap.String("session_id", sessionID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if len(entries) == 0 {
		Error(w, http.StatusNotFound, "session not found")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "messages": entries})
}

func (s *Server) userHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	entries, err := s.deps.Store.UserMessages(r.Context(), userID, s.cfg.UserHistorySize)
	if err != nil {
		s.logger.Error("load user history", zap.String("user_id", userID), zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	JSON(w, http.StatusOK, map[string]any{"user_id": userID, "messages": entries})
}

func (s *Server) postJobSearch(w http.ResponseWriter, r *http.Request) {
	var q jobs.Query
	if err := decode(w, r, &q); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q.Page < 0 || q.Limit < 0 {
		Error(w, http.StatusBadRequest, "page and limit must not be negative")
		return
	}

	res, err := s.deps.Jobs.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("job search failed", zap.String("title", q.Title), zap.String("location", q.Location), zap.Error(err))
		Error(w, http.StatusBadGateway, "job search is temporarily unavailable")
		return
	}

	JSON(w, http.StatusOK, res)
}

func (s *Server) postMentorship(w http.ResponseWriter, r *http.Request) {
	var req mentorshipRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	conf, err := s.deps.Mentorship.Record(r.Context(), strings.TrimSpace(req.UserID), req.InterestField)
	if err != nil {
		s.logger.Error("mentorship request failed", zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to record mentorship request")
		return
	}

	JSON(w, http.StatusOK, conf)
}
