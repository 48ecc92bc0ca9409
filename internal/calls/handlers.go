package calls

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/asha/internal/store"

	"go.uber.org/zap"
)

// Dialer places outbound calls.
type Dialer interface {
	PlaceCall(ctx context.Context, call CallRequest) (string, error)
}

// FeedbackGenerator turns a transcript into interviewer feedback.
type FeedbackGenerator interface {
	InterviewFeedback(ctx context.Context, transcript []Utterance) (string, error)
}

// Interviews is the interview record store used by the handlers.
type Interviews interface {
	GetInterview(ctx context.Context, id int64) (*store.Interview, error)
	SetInterviewStatus(ctx context.Context, id int64, status string) error
	SetInterviewCall(ctx context.Context, id int64, callSID string) error
	SaveInterviewFeedback(ctx context.Context, id int64, feedback string) error
}

// InitiateCallHandler dials the candidate for a scheduled interview.
type InitiateCallHandler struct {
	interviews  Interviews
	dialer      Dialer
	publicURL   string
	maxAttempts int
	logger      *zap.Logger
}

func NewInitiateCallHandler(interviews Interviews, dialer Dialer, publicURL string, maxAttempts int, logger *zap.Logger) *InitiateCallHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InitiateCallHandler{
		interviews:  interviews,
		dialer:      dialer,
		publicURL:   strings.TrimRight(publicURL, "/"),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (h *InitiateCallHandler) Name() string { return JobInitiateInterviewCall }

func (h *InitiateCallHandler) Execute(ctx context.Context, job *Job) error {
	id, err := job.Args.Int64("interview_id")
	if err != nil {
		return err
	}
	phone := job.Args.String("phone")
	if phone == "" {
		return fmt.Errorf("argument %q is missing", "phone")
	}

	in, err := h.interviews.GetInterview(ctx, id)
	if err != nil {
		return fmt.Errorf("load interview %d: %w", id, err)
	}
	if in.Status != store.InterviewScheduled {
		h.logger.Info("interview is no longer scheduled, not calling",
			zap.Int64("interview_id", id), zap.String("status", in.Status))
		return nil
	}

	sid, err := h.dialer.PlaceCall(ctx, CallRequest{
		To:             phone,
		TwimlURL:       fmt.Sprintf("%s/interview/start/%d", h.publicURL, id),
		StatusCallback: fmt.Sprintf("%s/interview/status/%d", h.publicURL, id),
		Record:         true,
	})
	if err != nil {
		if h.maxAttempts > 0 && job.Attempts >= h.maxAttempts {
			if serr := h.interviews.SetInterviewStatus(ctx, id, store.InterviewFailed); serr != nil {
				h.logger.Error("mark interview failed", zap.Int64("interview_id", id), zap.Error(serr))
			}
		}
		return fmt.Errorf("place call for interview %d: %w", id, err)
	}

	// The call is live. A failed write must not fail the job, or a retry would
	// dial the candidate again.
	if err := h.interviews.SetInterviewCall(context.WithoutCancel(ctx), id, sid); err != nil {
		h.logger.Error("store call sid", zap.Int64("interview_id", id), zap.String("call_sid", sid), zap.Error(err))
		return nil
	}

	h.logger.Info("interview call placed", zap.Int64("interview_id", id), zap.String("call_sid", sid))
	return nil
}

// AnalyzeHandler generates feedback for a finished interview call.
type AnalyzeHandler struct {
	interviews Interviews
	kv         KV
	feedback   FeedbackGenerator
	logger     *zap.Logger
}

func NewAnalyzeHandler(interviews Interviews, kv KV, feedback FeedbackGenerator, logger *zap.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyzeHandler{
		interviews: interviews,
		kv:         kv,
		feedback:   feedback,
		logger:     logger,
	}
}

func (h *AnalyzeHandler) Name() string { return JobAnalyzeInterview }

// Execute skips interviews without a transcript: there is nothing to analyze.
func (h *AnalyzeHandler) Execute(ctx context.Context, job *Job) error {
	id, err := job.Args.Int64("interview_id")
	if err != nil {
		return err
	}

	t, err := LoadTranscript(ctx, h.kv, id)
	if err != nil {
		return err
	}
	if len(t.History) == 0 {
		h.logger.Warn("no transcript found, skipping analysis", zap.Int64("interview_id", id))
		return nil
	}

	feedback, err := h.feedback.InterviewFeedback(ctx, t.History)
	if err != nil {
		return fmt.Errorf("generate feedback for interview %d: %w", id, err)
	}

	if err := h.interviews.SaveInterviewFeedback(ctx, id, feedback); err != nil {
		return fmt.Errorf("store feedback: %w", err)
	}

	h.logger.Info("interview analyzed", zap.Int64("interview_id", id), zap.Int("utterances", len(t.History)))
	return nil
}
