package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model          string  `json:"model"`
	Seed           *int    `json:"seed"`
	Temperature    float64 `json:"temperature"`
	ResponseFormat struct {
		Type       string `json:"type"`
		JSONSchema struct {
			Name   string         `json:"name"`
			Strict bool           `json:"strict"`
			Schema map[string]any `json:"schema"`
		} `json:"json_schema"`
	} `json:"response_format"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gemini-2.5-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewOpenAIClient(ClientConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1/",
		Model:   "gemini-2.5-flash",
		Seed:    42,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestGenerateSendsStructuredMultimodalRequest(t *testing.T) {
	var got capturedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion(`{"thought":"log in first","action":"click_by_text('Log in')"}`)))
	})

	sess := NewSession(c, "Find the cheapest flight")
	step := StepPrompt{Metadata: "title: Home", History: "Prior actions: \n- ", Actions: "back() - Go back.", Current: []byte{0x89, 'P', 'N', 'G'}}
	d, err := sess.Decide(context.Background(), step.Parts())
	require.NoError(t, err)
	assert.Equal(t, Decision{Thought: "log in first", Action: "click_by_text('Log in')"}, d)

	assert.Equal(t, "gemini-2.5-flash", got.Model)
	require.NotNil(t, got.Seed)
	assert.Equal(t, 42, *got.Seed)
	assert.Greater(t, got.Temperature, 0.0)
	assert.Less(t, got.Temperature, 1e-6, "zero temperature is sent as the smallest float")

	assert.Equal(t, "json_schema", got.ResponseFormat.Type)
	assert.Equal(t, "agent_decision", got.ResponseFormat.JSONSchema.Name)
	assert.True(t, got.ResponseFormat.JSONSchema.Strict)
	assert.ElementsMatch(t, []any{"thought", "action"}, got.ResponseFormat.JSONSchema.Schema["required"])

	require.Len(t, got.Messages, 2)
	var system string
	require.NoError(t, json.Unmarshal(got.Messages[0].Content, &system))
	assert.True(t, strings.HasSuffix(system, "TASK: Find the cheapest flight"))

	var parts []map[string]any
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0]["type"])
	assert.Equal(t, "Current screenshot:", parts[1]["text"])
	img := parts[2]["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(img["url"].(string), "data:image/png;base64,"))
}

func TestGenerateStripsCodeFence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("```json\n{\"thought\":\"t\",\"action\":\"back()\"}\n```")))
	})
	var d Decision
	require.NoError(t, c.Generate(context.Background(), Request{Parts: []Part{Text("hi")}, Schema: DecisionSchema}, &d))
	assert.Equal(t, "back()", d.Action)
}

func TestGenerateErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"rate_limit"}}`))
	})
	var d Decision
	err := c.Generate(context.Background(), Request{Parts: []Part{Text("hi")}}, &d)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	c = newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("not json")))
	})
	err = c.Generate(context.Background(), Request{Parts: []Part{Text("hi")}}, &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json parse error")
	assert.False(t, IsRateLimited(err))

	_, err = NewOpenAIClient(ClientConfig{Model: "m"})
	assert.Error(t, err)
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, stripFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}\n```"))
}
