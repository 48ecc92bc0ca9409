// Package calls runs the outbound interview-call queue: durable jobs with an
// ETA, a polling worker and the handlers that talk to the telephony provider
// and the feedback model.
package calls

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	JobInitiateInterviewCall = "initiate_interview_call"
	JobAnalyzeInterview      = "analyze_interview"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Args carries job arguments as a JSON object.
type Args map[string]any

// String returns the value under key rendered as a string.
func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Int64 returns the value under key as an integer. JSON numbers and numeric
// strings are accepted.
func (a Args) Int64(key string) (int64, error) {
	v, ok := a[key]
	if !ok {
		return 0, fmt.Errorf("argument %q is missing", key)
	}
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("argument %q: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %q has unsupported type %T", key, v)
	}
}

// Job is one unit of queued work.
type Job struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Args      Args      `json:"args"`
	ETA       time.Time `json:"eta"`
	Status    JobStatus `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
