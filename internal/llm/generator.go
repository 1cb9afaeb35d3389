// ABOUTME: Language-generation collaborator contract used by the memory controller
// ABOUTME: Role-tagged turns in, zero-or-more candidates of text fragments out
package llm

import (
	"context"
	"strings"
)

// Collaborator role vocabulary
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one role-tagged text turn sent to the collaborator
type Message struct {
	Role string
	Text string
}

// Params are the static generation parameters for a call
type Params struct {
	Temperature     float32
	MaxOutputTokens int
}

// Request is a single generation call
type Request struct {
	Messages          []Message
	SystemInstruction string
	Params            Params
}

// Candidate is one completion, made of ordered text fragments
type Candidate struct {
	Parts []string
}

// Response is the structured payload returned by the collaborator
type Response struct {
	Candidates []Candidate
}

// Text concatenates the fragments of the first candidate in order.
// An empty result means the collaborator produced no usable reply.
func (r Response) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Parts {
		b.WriteString(part)
	}
	return strings.TrimSpace(b.String())
}

// Generator is the language-generation collaborator
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
