package llm

import (
	"context"
	"errors"
)

// Decision is the model's structured answer for one step.
type Decision struct {
	Thought string `json:"thought"`
	Action  string `json:"action"`
}

// Part is one element of a multimodal prompt: text or an image.
type Part struct {
	Text      string
	Image     []byte
	MediaType string
}

func Text(s string) Part { return Part{Text: s} }

func PNG(data []byte) Part { return Part{Image: data, MediaType: "image/png"} }

func (p Part) IsImage() bool { return p.Image != nil }

// Schema describes the JSON object the model must return.
type Schema struct {
	Name        string
	Description string
	// Properties maps field names to descriptions; every field is a
	// required string. Enums restricts some of them to fixed values.
	Properties map[string]string
	Order      []string
	Enums      map[string][]string
}

// Request is one stateless model call.
type Request struct {
	System string
	Parts  []Part
	Schema Schema
}

// Client sends a request and decodes the JSON reply into out.
type Client interface {
	Generate(ctx context.Context, req Request, out any) error
}

var ErrEmptyResponse = errors.New("llm returned no choices")

// DecisionSchema is the output format of every agent step.
var DecisionSchema = Schema{
	Name:        "agent_decision",
	Description: "The decision of the agent which action/function call to perform next.",
	Properties: map[string]string{
		"thought": "Your reasoning process and next step.",
		"action":  "The function call to the action to perform next, chosen from the available actions. Example: click_by_text('text')",
	},
	Order: []string{"thought", "action"},
}
