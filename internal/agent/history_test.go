package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-web-agent/internal/action"
)

func TestHistoryString(t *testing.T) {
	r := action.NewDefault()
	click, err := r.Parse(`click_by_text('Log in')`)
	require.NoError(t, err)
	scroll, err := r.Parse(`scroll_up()`)
	require.NoError(t, err)

	h := NewHistory()
	assert.Equal(t, "Prior actions: \n- ", h.String())
	assert.Empty(t, h.Calls())
	assert.NotNil(t, h.Calls())

	h.Add(Step{Thought: "log in", Action: click, Status: action.StatusSuccess, Message: "Clicked"})
	h.Add(Step{Thought: "go up", Action: scroll, Status: action.StatusFailure, Message: "Page is already at the top"})

	assert.Equal(t,
		"Prior actions: \n- ACTION: click_by_text(text='Log in'), [Success]\n- ACTION: scroll_up(), [Failure], MESSAGE: Page is already at the top",
		h.String())
	assert.Equal(t, []string{"click_by_text(text='Log in')", "scroll_up()"}, h.Calls())
	assert.Equal(t, []string{"log in", "go up"}, h.Thoughts())
	assert.Equal(t, 2, h.Len())

	steps := h.Steps()
	steps[0].Thought = "mutated"
	assert.Equal(t, "log in", h.Steps()[0].Thought)
}
