package booking

import (
	"reflect"
	"testing"
	"time"

	"github.com/spigell/asha/internal/extract"
	"github.com/spigell/asha/internal/intent"
)

func TestNext(t *testing.T) {
	at := time.Date(2026, time.October, 19, 15, 30, 0, 0, time.UTC)
	phoneOnly := extract.Schedule{Phone: "9876543210"}
	timeOnly := extract.Schedule{Time: at}
	both := extract.Schedule{Phone: "9876543210", Time: at}

	tests := []struct {
		name    string
		current State
		ev      Event
		want    Transition
	}{
		{
			name:    "unrelated message without booking",
			current: NoBooking,
			ev:      Event{Intent: intent.JobSearch},
			want:    Transition{From: NoBooking, To: NoBooking, Action: Ignore},
		},
		{
			name:    "booking intent without details",
			current: NoBooking,
			ev:      Event{Intent: intent.InterviewBooking},
			want:    Transition{From: NoBooking, To: AwaitingDetails, Action: RequestDetails},
		},
		{
			name:    "booking intent with time only asks for both",
			current: NoBooking,
			ev:      Event{Intent: intent.InterviewBooking, Schedule: timeOnly},
			want:    Transition{From: NoBooking, To: AwaitingDetails, Action: RequestDetails},
		},
		{
			name:    "booking intent with phone only lists time",
			current: NoBooking,
			ev:      Event{Intent: intent.InterviewBooking, Schedule: phoneOnly},
			want:    Transition{From: NoBooking, To: AwaitingDetails, Action: RequestMissing, Missing: []Field{FieldTime}},
		},
		{
			name:    "complete details in one message",
			current: NoBooking,
			ev:      Event{Intent: intent.InterviewBooking, Schedule: both},
			want:    Transition{From: NoBooking, To: Scheduled, Action: Complete},
		},
		{
			name:    "complete details complete regardless of intent",
			current: NoBooking,
			ev:      Event{Intent: intent.GeneralQuery, Schedule: both},
			want:    Transition{From: NoBooking, To: Scheduled, Action: Complete},
		},
		{
			name:    "awaiting and both provided",
			current: AwaitingDetails,
			ev:      Event{Intent: intent.GeneralQuery, Schedule: both},
			want:    Transition{From: AwaitingDetails, To: Scheduled, Action: Complete},
		},
		{
			name:    "awaiting and phone only",
			current: AwaitingDetails,
			ev:      Event{Intent: intent.GeneralQuery, Schedule: phoneOnly},
			want:    Transition{From: AwaitingDetails, To: AwaitingDetails, Action: RequestMissing, Missing: []Field{FieldTime}},
		},
		{
			name:    "awaiting and time only",
			current: AwaitingDetails,
			ev:      Event{Intent: intent.GeneralQuery, Schedule: timeOnly},
			want:    Transition{From: AwaitingDetails, To: AwaitingDetails, Action: RequestMissing, Missing: []Field{FieldPhone}},
		},
		{
			name:    "awaiting and nothing useful",
			current: AwaitingDetails,
			ev:      Event{Intent: intent.JobSearch},
			want:    Transition{From: AwaitingDetails, To: AwaitingDetails, Action: Rerequest},
		},
		{
			name:    "scheduled behaves like a fresh start",
			current: Scheduled,
			ev:      Event{Intent: intent.InterviewBooking},
			want:    Transition{From: NoBooking, To: AwaitingDetails, Action: RequestDetails},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Next(tt.current, tt.ev)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Next() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStringers(t *testing.T) {
	if AwaitingDetails.String() != "awaiting_details" {
		t.Fatalf("unexpected state name %q", AwaitingDetails.String())
	}
	if Complete.String() != "complete" {
		t.Fatalf("unexpected action name %q", Complete.String())
	}
	if State(42).String() != "unknown" || Action(42).String() != "unknown" {
		t.Fatal("expected unknown for out of range values")
	}
}
