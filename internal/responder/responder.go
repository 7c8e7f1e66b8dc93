// Package responder generates the agent's spoken reply for an actionable
// utterance. The LLM is an external collaborator; this package only drives it.
package responder

import "context"

type Responder interface {
	Reply(ctx context.Context, userText string) (string, error)
}
