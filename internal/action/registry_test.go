package action_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-web-agent/internal/action"
	"github.com/nbenliogludev/go-web-agent/internal/browser"
	"github.com/nbenliogludev/go-web-agent/internal/browser/browsertest"
)

func run(action.Context, action.Args) action.Result { return action.Success("ok") }

func names(descs []*action.Descriptor) []string {
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Name()
	}
	return out
}

func TestApplicableDomainFilter(t *testing.T) {
	a := &action.Descriptor{Tag: "DummyAction", Run: run}
	b := &action.Descriptor{Tag: "DummyAction2", Domains: []string{"*.test.com"}, Run: run}
	r, err := action.NewRegistry(a, b)
	require.NoError(t, err)

	got, err := r.Applicable(browsertest.NewPage("https://test.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dummy_action", "dummy_action_2"}, names(got))

	got, err = r.Applicable(browsertest.NewPage("https://www.test.com/path?q=1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dummy_action", "dummy_action_2"}, names(got))

	got, err = r.Applicable(browsertest.NewPage("https://google.com"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dummy_action"}, names(got))
}

func TestApplicableEmptyDomainListMatchesNothing(t *testing.T) {
	d := &action.Descriptor{Tag: "Nowhere", Domains: []string{}, Run: run}
	ok, err := d.Applicable(browsertest.NewPage("https://www.google.com"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplicableUnparsableURL(t *testing.T) {
	d := &action.Descriptor{Tag: "Scoped", Domains: []string{"google.com"}, Run: run}
	ok, err := d.Applicable(browsertest.NewPage("::not a url"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplicablePageFilter(t *testing.T) {
	onlyGoogle := &action.Descriptor{
		Tag: "OnlyGoogle",
		PageFilter: func(p browser.Page) (bool, error) {
			return p.URL() == "https://google.com", nil
		},
		Run: run,
	}
	broken := &action.Descriptor{
		Tag:        "Broken",
		PageFilter: func(browser.Page) (bool, error) { return true, errors.New("context destroyed") },
		Run:        run,
	}

	ok, err := onlyGoogle.Applicable(browsertest.NewPage("https://google.com"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = onlyGoogle.Applicable(browsertest.NewPage("https://test.com"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = broken.Applicable(browsertest.NewPage("https://test.com"))
	require.NoError(t, err, "predicate failures never reach the caller")
	assert.False(t, ok)
}

func TestRegisterRejectsMisconfiguration(t *testing.T) {
	r, err := action.NewRegistry(&action.Descriptor{Tag: "ClickByText", Run: run})
	require.NoError(t, err)

	err = r.Register(&action.Descriptor{Tag: "ClickByText", Run: run})
	assert.ErrorIs(t, err, action.ErrDuplicateName)

	err = r.Register(&action.Descriptor{Tag: "Everywhere", Domains: []string{"*"}, Run: run})
	assert.ErrorIs(t, err, action.ErrInvalidDomainPattern)

	err = r.Register(&action.Descriptor{Tag: "NoRun"})
	assert.Error(t, err)

	err = r.Register(&action.Descriptor{
		Tag:    "Twice",
		Params: []action.Param{{Name: "a"}, {Name: "a"}},
		Run:    run,
	})
	assert.Error(t, err)

	assert.Len(t, r.Actions(), 1)
}

func TestApplicableEmptySetIsAnError(t *testing.T) {
	r, err := action.NewRegistry(&action.Descriptor{Tag: "Scoped", Domains: []string{"test.com"}, Run: run})
	require.NoError(t, err)

	_, err = r.Applicable(browsertest.NewPage("https://google.com"))
	assert.ErrorIs(t, err, action.ErrNoApplicableActions)
}

func TestDefaultRegistry(t *testing.T) {
	r := action.NewDefault()
	assert.Equal(t, []string{
		"click_by_text", "click_by_text_ith", "scroll_up", "scroll_down",
		"scroll_to_text", "scroll_to_ith_text", "type_text", "clear_input_field",
		"click_by_coords", "back", "reset", "abort", "finish",
	}, names(r.Actions()))

	page := browsertest.NewPage("https://example.com/")
	got, err := r.Applicable(page)
	require.NoError(t, err)
	assert.NotContains(t, names(got), "type_text", "nothing focused")
	assert.NotContains(t, names(got), "clear_input_field")
	assert.Contains(t, names(got), "abort")
	assert.Contains(t, names(got), "finish")

	page.Focused = true
	got, err = r.Applicable(page)
	require.NoError(t, err)
	assert.Contains(t, names(got), "type_text")
	assert.NotContains(t, names(got), "clear_input_field", "focused element is empty")

	page.FocusedValue = "shoes"
	got, err = r.Applicable(page)
	require.NoError(t, err)
	assert.Contains(t, names(got), "clear_input_field")

	// Terminal actions survive a page where every script fails.
	page.EvalErr = errors.New("execution context was destroyed")
	got, err = r.Applicable(page)
	require.NoError(t, err)
	assert.Contains(t, names(got), "finish")
}

func TestApplicableString(t *testing.T) {
	r := action.NewDefault()
	s, err := r.ApplicableString(browsertest.NewPage("https://example.com/"))
	require.NoError(t, err)

	lines := strings.Split(s, "\n")
	assert.Equal(t, "click_by_text('text') - Clicks the element that contains the given text. Will respond with all options if multiple candidates are found. If no elements are found, it tries looking for subtexts.", lines[0])
	assert.Contains(t, lines, "click_by_text_ith('text', 'ith') - Clicks on the ith element that contains the given text.")
	assert.Contains(t, lines, "back() - Go back to the previous page.")
}

func TestRegistryParse(t *testing.T) {
	r := action.NewDefault()
	a, err := r.Parse(`scroll_to_ith_text("Reviews", 1)`)
	require.NoError(t, err)
	assert.Equal(t, "scroll_to_ith_text", a.Name())
	assert.Equal(t, `scroll_to_ith_text(text='Reviews', ith=1)`, a.String())

	d, ok := r.Lookup("finish")
	require.True(t, ok)
	assert.Equal(t, "Finish", d.Tag)
}
