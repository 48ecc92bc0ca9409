package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/spigell/asha/internal/calls"
	"github.com/spigell/asha/internal/store"
	"go.uber.org/zap"
)

const (
	callStatusCompleted = "completed"

	noAnswerPrompt = "Sorry, I didn't catch that. Let's move on."
	troubleMessage = "Sorry, we are having trouble running your interview. Please book again from the chat. Goodbye!"
)

// failedCallStatuses are the final Twilio call states that mean nobody talked.
var failedCallStatuses = map[string]bool{
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

func interviewID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid interview id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func respondPath(id int64) string {
	return fmt.Sprintf("/interview/respond/%d", id)
}

func (s *Server) interview(w http.ResponseWriter, r *http.Request) {
	id, err := interviewID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := s.deps.Store.GetInterview(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		Error(w, http.StatusNotFound, "interview not found")
		return
	case err != nil:
		s.logger.Error("load interview", zap.Int64("interview_id", id), zap.Error(err))
		Error(w, http.StatusInternalServerError, "failed to load interview")
		return
	}

	JSON(w, http.StatusOK, in)
}

// interviewStart greets the caller and asks the first question.
func (s *Server) interviewStart(w http.ResponseWriter, r *http.Request) {
	id, err := interviewID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	log := s.logger.With(zap.Int64("interview_id", id))

	t, err := calls.LoadTranscript(r.Context(), s.deps.Store, id)
	if err != nil {
		log.Error("load transcript", zap.Error(err))
		XML(w, hangup(troubleMessage))
		return
	}

	question, ok := t.Next()
	if !ok {
		XML(w, hangup(calls.Closing))
		return
	}

	log.Info("interview call started", zap.Int("asked", t.Asked))
	XML(w, askQuestion(respondPath(id), question, calls.Greeting))
}

// interviewRespond stores the spoken answer and asks the next question.
func (s *Server) interviewRespond(w http.ResponseWriter, r *http.Request) {
	id, err := interviewID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	log := s.logger.With(zap.Int64("interview_id", id))

	if err := r.ParseForm(); err != nil {
		Error(w, http.StatusBadRequest, "invalid form")
		return
	}
	speech := strings.TrimSpace(r.PostForm.Get("SpeechResult"))

	t, err := calls.LoadTranscript(r.Context(), s.deps.Store, id)
	if err != nil {
		log.Error("load transcript", zap.Error(err))
		XML(w, hangup(troubleMessage))
		return
	}

	t.Answer(speech)
	if err := calls.SaveTranscript(r.Context(), s.deps.Store, id, t); err != nil {
		log.Error("save transcript", zap.Error(err))
		XML(w, hangup(troubleMessage))
		return
	}

	question, ok := t.Next()
	if !ok {
		log.Info("interview call finished", zap.Int("utterances", len(t.History)))
		XML(w, hangup(calls.Closing))
		return
	}

	var lead []string
	if speech == "" {
		lead = append(lead, noAnswerPrompt)
	}
	XML(w, askQuestion(respondPath(id), question, lead...))
}

// interviewStatus receives call progress callbacks from the telephony provider.
func (s *Server) interviewStatus(w http.ResponseWriter, r *http.Request) {
	id, err := interviewID(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := r.ParseForm(); err != nil {
		Error(w, http.StatusBadRequest, "invalid form")
		return
	}

	status := r.PostForm.Get("CallStatus")
	log := s.logger.With(zap.Int64("interview_id", id), zap.String("call_status", status))

	switch {
	case status == callStatusCompleted:
		in, err := s.deps.Store.GetInterview(r.Context(), id)
		switch {
		case errors.Is(err, store.ErrNotFound):
			Error(w, http.StatusNotFound, "interview not found")
			return
		case err != nil:
			log.Error("load interview", zap.Error(err))
			Error(w, http.StatusInternalServerError, "failed to load interview")
			return
		}
		// Twilio may deliver the same callback more than once.
		if in.Status == store.InterviewCompleted || in.Status == store.InterviewAnalyzed {
			log.Info("interview already completed, ignoring callback", zap.String("status", in.Status))
			break
		}

		if err := s.deps.Store.CompleteInterview(r.Context(), id, r.PostForm.Get("RecordingUrl")); err != nil {
			log.Error("complete interview", zap.Error(err))
			Error(w, http.StatusInternalServerError, "failed to update interview")
			return
		}
		job, err := s.deps.Queue.Enqueue(r.Context(), calls.JobAnalyzeInterview, calls.Args{"interview_id": id}, time.Time{})
		if err != nil {
			log.Error("enqueue analysis", zap.Error(err))
			Error(w, http.StatusInternalServerError, "failed to schedule analysis")
			return
		}
		log.Info("interview completed, analysis queued", zap.String("job_id", job.ID))

	case failedCallStatuses[status]:
		if err := s.deps.Store.SetInterviewStatus(r.Context(), id, store.InterviewFailed); err != nil {
			log.Error("mark interview failed", zap.Error(err))
			Error(w, http.StatusInternalServerError, "failed to update interview")
			return
		}
		log.Warn("interview call did not connect")

	default:
		log.Debug("call status received")
	}

	w.WriteHeader(http.StatusNoContent)
}
