// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nbenliogludev/go-web-agent/internal/llm"
)

// Reply is one scripted answer: either a value to encode into the caller's
// output or an error.
type Reply struct {
	Value any
	Err   error
}

// Client replays Replies in order. Once they run out the last one repeats.
type Client struct {
	mu       sync.Mutex
	Replies  []Reply
	Requests []llm.Request
}

func (c *Client) Generate(_ context.Context, req llm.Request, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)
	if len(c.Replies) == 0 {
		return llm.ErrEmptyResponse
	}
	idx := len(c.Requests) - 1
	if idx >= len(c.Replies) {
		idx = len(c.Replies) - 1
	}
	r := c.Replies[idx]
	if r.Err != nil {
		return r.Err
	}
	raw, err := json.Marshal(r.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

// Decide is shorthand for a decision reply.
func Decide(thought, action string) Reply {
	return Reply{Value: llm.Decision{Thought: thought, Action: action}}
}

func Fail(err error) Reply { return Reply{Err: err} }
