// Package booking collects a phone number and a preferred time across chat
// turns and books a mock-interview call once both are known.
package booking

import (
	"github.com/spigell/asha/internal/extract"
	"github.com/spigell/asha/internal/intent"
)

// State is the per-user booking state.
type State int

const (
	NoBooking State = iota
	AwaitingDetails
	Scheduled
)

func (s State) String() string {
	switch s {
	case NoBooking:
		return "no_booking"
	case AwaitingDetails:
		return "awaiting_details"
	case Scheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

// Action is the side effect a transition asks for.
type Action int

const (
	// Ignore means the message is not part of a booking.
	Ignore Action = iota
	// RequestDetails asks for phone and time and raises the flag.
	RequestDetails
	// RequestMissing lists the missing field and refreshes the flag.
	RequestMissing
	// Rerequest repeats the request for both fields in the example format.
	Rerequest
	// Complete clears the flag, records the interview and enqueues the call.
	Complete
)

func (a Action) String() string {
	switch a {
	case Ignore:
		return "ignore"
	case RequestDetails:
		return "request_details"
	case RequestMissing:
		return "request_missing"
	case Rerequest:
		return "rerequest"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Field names a piece of booking information.
type Field string

const (
	FieldPhone Field = "phone number"
	FieldTime  Field = "preferred time"
)

// Event is one user message as seen by the state machine.
type Event struct {
	Intent   intent.Intent
	Schedule extract.Schedule
}

// Transition is the result of Next.
type Transition struct {
	From    State
	To      State
	Action  Action
	Missing []Field
}

// Next computes the transition for ev in state current. It has no side
// effects. Completion lands in Scheduled; the stored state afterwards is
// NoBooking because the flag is cleared.
func Next(current State, ev Event) Transition {
	t := Transition{From: current, To: current, Action: Ignore}

	if ev.Schedule.Complete() {
		t.To = Scheduled
		t.Action = Complete
		return t
	}

	switch current {
	case NoBooking:
		if ev.Intent != intent.InterviewBooking {
			return t
		}
		t.To = AwaitingDetails
		if ev.Schedule.HasPhone() {
			t.Action = RequestMissing
			t.Missing = []Field{FieldTime}
			return t
		}
		t.Action = RequestDetails
		return t

	case AwaitingDetails:
		missing := missingFields(ev.Schedule)
		if len(missing) == 2 {
			t.Action = Rerequest
			return t
		}
		t.Action = RequestMissing
		t.Missing = missing
		return t

	default:
		// Scheduled is terminal for a single booking; a new request starts over.
		return Next(NoBooking, ev)
	}
}

func missingFields(s extract.Schedule) []Field {
	var missing []Field
	if !s.HasPhone() {
		missing = append(missing, FieldPhone)
	}
	if !s.HasTime() {
		missing = append(missing, FieldTime)
	}
	return missing
}
