// Package ai defines the generative-chat contract used by the chat router.
package ai

import "context"

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Turn is one message of the conversation history, oldest first.
type Turn struct {
	Role string
	Text string
}

// Reply is the model answer. Action names a client-side trigger such as
// "resume_form" and is empty when the model requested none.
type Reply struct {
	Text   string
	Action string
}

type Assistant interface {
	Complete(ctx context.Context, prompt string, history []Turn) (*Reply, error)
}
