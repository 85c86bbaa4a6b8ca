package agent

import (
	"fmt"
	"strings"

	"github.com/nbenliogludev/go-web-agent/internal/action"
)

// Step is one executed action together with the thought that led to it.
type Step struct {
	Thought    string
	Action     action.Action
	Status     action.Status
	Message    string
	Screenshot string
}

// History is the append-only log of executed steps of one task.
type History struct {
	steps []Step
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Add(s Step) {
	h.steps = append(h.steps, s)
}

func (h *History) Len() int { return len(h.steps) }

func (h *History) Steps() []Step {
	if len(h.steps) == 0 {
		return nil
	}
	out := make([]Step, len(h.steps))
	copy(out, h.steps)
	return out
}

// Calls returns the rendered action call of every step.
func (h *History) Calls() []string {
	out := make([]string, 0, len(h.steps))
	for _, s := range h.steps {
		out = append(out, s.Action.String())
	}
	return out
}

func (h *History) Thoughts() []string {
	out := make([]string, 0, len(h.steps))
	for _, s := range h.steps {
		out = append(out, s.Thought)
	}
	return out
}

// String renders the history block shown to the model at every step.
func (h *History) String() string {
	lines := make([]string, 0, len(h.steps))
	for _, s := range h.steps {
		line := fmt.Sprintf("ACTION: %s, [%s]", s.Action.String(), s.Status.Label())
		if s.Status != action.StatusSuccess {
			line += ", MESSAGE: " + s.Message
		}
		lines = append(lines, line)
	}
	return "Prior actions: \n- " + strings.Join(lines, "\n- ")
}
