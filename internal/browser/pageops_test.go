package browser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
	"github.com/nbenliogludev/go-web-agent/internal/browser/browsertest"
)

func TestLoadURL(t *testing.T) {
	p := browsertest.NewPage("about:blank")
	require.NoError(t, browser.LoadURL(p, "https://example.com/", nil))
	assert.Equal(t, []string{"https://example.com/"}, p.Visits)

	p.GotoStatus = map[string]int{"https://example.com/missing": 404}
	err := browser.LoadURL(p, "https://example.com/missing", nil)
	require.ErrorIs(t, err, browser.ErrLoadURL)
	assert.Contains(t, err.Error(), "404")

	// Redirect-ish statuses are fine.
	p.GotoStatus["https://example.com/moved"] = 302
	assert.NoError(t, browser.LoadURL(p, "https://example.com/moved", nil))
}

func TestLoadURLIdleTimeoutTolerated(t *testing.T) {
	p := browsertest.NewPage("about:blank")
	p.IdleErr = browser.ErrTimeout
	assert.NoError(t, browser.LoadURL(p, "https://slow.example.com/", nil))

	p.IdleErr = errors.New("target closed")
	assert.ErrorIs(t, browser.LoadURL(p, "https://slow.example.com/", nil), browser.ErrLoadURL)
}

func TestLoadURLNavigationError(t *testing.T) {
	p := browsertest.NewPage("about:blank")
	p.GotoErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	err := browser.LoadURL(p, "https://nowhere.invalid/", nil)
	assert.ErrorIs(t, err, browser.ErrLoadURL)
	assert.ErrorIs(t, err, p.GotoErr)
}

func TestGetMetadata(t *testing.T) {
	p := browsertest.NewPage("https://shop.example.com/cart")
	p.PageTitle = "Cart"
	p.FocusedHTML = `<input type="text" id="q" name="q" placeholder="Search" value="">`

	md, err := browser.GetMetadata(p)
	require.NoError(t, err)
	assert.Equal(t, "Cart", md.Title)
	assert.Equal(t, "https://shop.example.com/cart", md.URL)
	assert.Equal(t, p.FocusedHTML, md.FocusedElement)
	assert.Contains(t, md.String(), "focused element: <input")

	p.FocusedHTML = ""
	md, err = browser.GetMetadata(p)
	require.NoError(t, err)
	assert.Empty(t, md.FocusedElement)
	assert.Contains(t, md.String(), "focused element: none")

	p.FocusedEvalErr = errors.New("execution context was destroyed")
	md, err = browser.GetMetadata(p)
	require.NoError(t, err)
	assert.Equal(t, "Unable to determine focused element.", md.FocusedElement)
}

func TestCleanPage(t *testing.T) {
	p := browsertest.NewPage("https://example.com/")
	browser.CleanPage(p, nil)
	assert.Equal(t, 1, p.Cleaned)

	p.EvalErr = errors.New("boom")
	browser.CleanPage(p, nil)
	assert.Equal(t, 1, p.Cleaned)
}

func TestEffects(t *testing.T) {
	assert.False(t, browser.Effects{}.Any())
	assert.Equal(t, "no observable effect", browser.Effects{}.String())

	e := browser.Effects{Dialog: true, URLChanged: true}
	assert.True(t, e.Any())
	assert.Equal(t, "dialog, url change", e.String())
}

func TestEvaluateHelpers(t *testing.T) {
	p := browsertest.NewPage("https://example.com/")
	p.ScrollY = 120
	p.PixelRatio = 2

	y, err := browser.ScrollOffset(p)
	require.NoError(t, err)
	assert.Equal(t, 120.0, y)

	r, err := browser.DevicePixelRatio(p)
	require.NoError(t, err)
	assert.Equal(t, 2.0, r)

	focused, err := browser.HasFocusedElement(p)
	require.NoError(t, err)
	assert.False(t, focused)

	p.Focused, p.FocusedValue = true, "hello"
	hasValue, err := browser.FocusedHasValue(p)
	require.NoError(t, err)
	assert.True(t, hasValue)

	require.NoError(t, browser.ClearFocusedValue(p))
	assert.Empty(t, p.FocusedValue)
}

func TestFocusedHasValueReadsValueProperty(t *testing.T) {
	// Typed text only shows up in the value property.
	assert.Contains(t, browser.FocusedHasValueScript, "typeof el.value === 'string' && el.value !== ''")
	assert.NotContains(t, browser.FocusedHasValueScript, "hasAttribute")
}
