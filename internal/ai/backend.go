// Package ai abstracts the two chat-completion backends behind one
// interface. The hosted backend speaks native tool calling; the local one
// uses a textual sentinel that never leaves this package.
package ai

import (
	"context"

	"github.com/stellarlinkco/avaclaw/internal/convo"
)

// DefaultPersona is the system prompt used when a chat has no character
// override.
const DefaultPersona = "You are Ava, a casual assistant in a private friend group chat. Be brief and natural unless asked to elaborate. Match the group's tone and energy."

// Request is a single chat-completion call: the active persona plus the
// chat's turn window, oldest first.
type Request struct {
	System string
	Turns  []convo.Turn
}

// PictureRequest is the uniform form of "the model wants an image sent",
// whether it arrived as a structural tool call or as a sentinel.
type PictureRequest struct {
	Description string
}

type Reply struct {
	Text    string
	Picture *PictureRequest
}

// Backend produces one reply for one request. Implementations must not
// leak their tool-call encoding: a picture request always surfaces as
// Reply.Picture.
type Backend interface {
	Complete(ctx context.Context, req Request) (Reply, error)
	Name() string
}
