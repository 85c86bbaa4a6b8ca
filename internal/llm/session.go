package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Session is a model conversation bound to one task. Calls are stateless on
// the wire; a session only fixes the system prompt and output schema.
// After a failed call the agent discards the session and opens a new one.
type Session struct {
	ID     string
	client Client
	system string
}

func NewSession(client Client, taskDescription string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		client: client,
		system: AgentSystemPrompt(taskDescription),
	}
}

// Decide asks the model for the next action.
func (s *Session) Decide(ctx context.Context, parts []Part) (Decision, error) {
	var d Decision
	err := s.client.Generate(ctx, Request{System: s.system, Parts: parts, Schema: DecisionSchema}, &d)
	if err != nil {
		return Decision{}, err
	}
	if strings.TrimSpace(d.Action) == "" {
		return Decision{}, fmt.Errorf("%w: decision has no action", ErrEmptyResponse)
	}
	return d, nil
}
