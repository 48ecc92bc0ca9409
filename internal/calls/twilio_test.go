package calls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTwilioPlaceCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Calls.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Fatalf("unexpected basic auth %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		for key, want := range map[string]string{
			"To":             "+919876543210",
			"From":           "+15550001111",
			"Url":            "https://asha.example/interview/start/5",
			"StatusCallback": "https://asha.example/interview/status/5",
			"Record":         "true",
		} {
			if got := r.PostForm.Get(key); got != want {
				t.Fatalf("form %s = %q, want %q", key, got, want)
			}
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA42","status":"queued"}`))
	}))
	defer server.Close()

	client := NewTwilioClient(nil, "AC123", "secret", "+15550001111")
	client.APIURL = server.URL

	sid, err := client.PlaceCall(context.Background(), CallRequest{
		To:             "+919876543210",
		TwimlURL:       "https://asha.example/interview/start/5",
		StatusCallback: "https://asha.example/interview/status/5",
		Record:         true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sid != "CA42" {
		t.Fatalf("expected sid CA42, got %q", sid)
	}
}

func TestTwilioPlaceCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
	}))
	defer server.Close()

	client := NewTwilioClient(nil, "AC123", "secret", "+15550001111")
	client.APIURL = server.URL

	_, err := client.PlaceCall(context.Background(), CallRequest{To: "+91123"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "21211") {
		t.Fatalf("expected provider code in error, got %v", err)
	}
}
