package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// TranscriptTTL bounds how long an interview transcript stays in the KV store.
const TranscriptTTL = 24 * time.Hour

// Questions are asked in order during a mock interview call.
var Questions = []string{
	"To start, please tell me a little about yourself and your background.",
	"Describe a challenging project you worked on. What was your role and what was the result?",
	"Tell me about a time you disagreed with a teammate. How did you handle it?",
	"Where do you see your career in the next three years?",
}

// Greeting opens every interview call.
const Greeting = "Hello! This is Asha, your mock interview partner. Let's begin."

// Closing ends every interview call.
const Closing = "Thank you for your time. Your feedback will be ready in your Asha dashboard shortly. Goodbye!"

// KV is the subset of the key-value store the call flow needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Utterance is one line of the call transcript.
type Utterance struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Transcript is the running state of one interview call.
type Transcript struct {
	Asked   int         `json:"asked"`
	History []Utterance `json:"history"`
}

// Next returns the question to ask after Asked answers and whether one is left.
func (t *Transcript) Next() (string, bool) {
	if t.Asked >= len(Questions) {
		return "", false
	}
	return Questions[t.Asked], true
}

// Answer records the caller's answer to the current question.
func (t *Transcript) Answer(speech string) {
	if t.Asked < len(Questions) {
		t.History = append(t.History, Utterance{Role: "interviewer", Text: Questions[t.Asked]})
		t.Asked++
	}
	t.History = append(t.History, Utterance{Role: "user", Text: speech})
}

func transcriptKey(interviewID int64) string {
	return fmt.Sprintf("interview_state:%d", interviewID)
}

// LoadTranscript returns the stored transcript or an empty one.
func LoadTranscript(ctx context.Context, kv KV, interviewID int64) (*Transcript, error) {
	raw, ok, err := kv.Get(ctx, transcriptKey(interviewID))
	if err != nil {
		return nil, fmt.Errorf("load transcript of interview %d: %w", interviewID, err)
	}
	t := &Transcript{}
	if !ok {
		return t, nil
	}
	if err := json.Unmarshal([]byte(raw), t); err != nil {
		return nil, fmt.Errorf("decode transcript of interview %d: %w", interviewID, err)
	}
	return t, nil
}

// SaveTranscript stores the transcript for TranscriptTTL.
func SaveTranscript(ctx context.Context, kv KV, interviewID int64, t *Transcript) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := kv.Set(ctx, transcriptKey(interviewID), string(raw), TranscriptTTL); err != nil {
		return fmt.Errorf("save transcript of interview %d: %w", interviewID, err)
	}
	return nil
}
