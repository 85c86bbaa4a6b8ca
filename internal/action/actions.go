package action

import (
	"fmt"
	"strings"
	"time"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
)

const (
	scrollDelta = 700
	// effectWindow is how long click_by_coords watches for consequences.
	effectWindow = 1500 * time.Millisecond
)

var textParam = Param{Name: "text", Kind: KindString, Description: "The text to click on."}

// Defaults returns the default variants in prompt order. Every call returns
// fresh descriptors.
func Defaults() []*Descriptor {
	return []*Descriptor{
		{
			Tag:         "ClickByText",
			Description: "Clicks the element that contains the given text. Will respond with all options if multiple candidates are found. If no elements are found, it tries looking for subtexts.",
			Params:      []Param{textParam},
			Run:         runClickByText,
		},
		{
			Tag:         "ClickByTextIth",
			Description: "Clicks on the ith element that contains the given text.",
			Params: []Param{
				textParam,
				{Name: "ith", Kind: KindInt, Description: "The index of the element to click on. Starts at 0, so 0 is the first element."},
			},
			Run: runClickByTextIth,
		},
		{
			Tag:         "ScrollUp",
			Description: "Scrolls up on the page.",
			Run:         func(ctx Context, _ Args) Result { return scroll(ctx.Page, -scrollDelta) },
		},
		{
			Tag:         "ScrollDown",
			Description: "Scrolls down on the page.",
			Run:         func(ctx Context, _ Args) Result { return scroll(ctx.Page, scrollDelta) },
		},
		{
			Tag:         "ScrollToText",
			Description: "Searches for the given text on the current page and focuses on it. Will respond with all options if multiple candidates are found.",
			Params:      []Param{{Name: "text", Kind: KindString, Description: "The text to search for."}},
			Run:         runScrollToText,
		},
		{
			Tag:         "ScrollToIthText",
			Description: "Searches for the ith given text on the current page and focuses on it.",
			Params: []Param{
				{Name: "text", Kind: KindString, Description: "The text to search for."},
				{Name: "ith", Kind: KindInt, Description: "The index of the element to focus on. Starts at 0."},
			},
			Run: runScrollToIthText,
		},
		{
			Tag: "TypeText",
			Description: "Type text into the focused element. You can see your currently focused element in the metadata. " +
				"Use a click action to focus on a text field, if it is not yet focused. " +
				"'press_enter' MUST be a boolean (True/False), not a string. Example: type_text(text='search term', press_enter=True)",
			Params: []Param{
				{Name: "text", Kind: KindString, Description: "The text to type into the focused element."},
				{Name: "press_enter", Kind: KindBool, Default: false, Description: "True to press Enter after typing, False otherwise."},
			},
			PageFilter: browser.HasFocusedElement,
			Run:        runTypeText,
		},
		{
			Tag:         "ClearInputField",
			Description: "Clears the input field that is currently focused.",
			PageFilter:  browser.FocusedHasValue,
			Run:         runClearInputField,
		},
		{
			Tag:         "ClickByCoords",
			Description: "Clicks on the given screenshot coordinates. Rather unreliable, so should be used as a last resort.",
			Params: []Param{
				{Name: "x", Kind: KindInt, Description: "The x coordinate to click on."},
				{Name: "y", Kind: KindInt, Description: "The y coordinate to click on."},
			},
			Run: runClickByCoords,
		},
		{
			Tag:         "Back",
			Description: "Go back to the previous page.",
			Run:         runBack,
		},
		{
			Tag:         "Reset",
			Description: "Reset the browser to the initial starting page.",
			Run:         runReset,
		},
		{
			Tag:         "Abort",
			Description: "Abort the task only in case when you have failed to complete the task and there is no way to recover.",
			Params:      []Param{{Name: "reason", Kind: KindString, Description: "The reason for aborting the task."}},
			Run: func(_ Context, args Args) Result {
				reason := args.String("reason")
				return Result{
					Status:  StatusAbort,
					Message: "Task aborted. Reason: " + reason,
					Data:    map[string]string{"reason": reason},
				}
			},
		},
		{
			Tag:         "Finish",
			Description: "Indicate that the task is finished and provide the final answer/result.",
			Params:      []Param{{Name: "answer", Kind: KindString, Description: "The final answer to the user query."}},
			Run: func(_ Context, args Args) Result {
				answer := args.String("answer")
				return Result{
					Status:  StatusFinish,
					Message: "Task finished. The answer is: " + answer,
					Data:    map[string]string{"answer": answer},
				}
			},
		},
	}
}

func locate(page browser.Page, text string) browser.Elements {
	return page.GetByText(text).Or(page.GetByPlaceholder(text)).Or(page.GetByLabel(text))
}

// findTargets matches visible elements by text, placeholder or label. When
// nothing matches the whole text, the union of its words is used instead.
func findTargets(page browser.Page, text string) (browser.Elements, int, error) {
	targets := locate(page, text)
	n, err := targets.Count()
	if err != nil {
		return nil, 0, err
	}
	if n > 0 {
		return targets, n, nil
	}

	for _, word := range strings.Fields(text) {
		sub := locate(page, word)
		c, err := sub.Count()
		if err != nil {
			return nil, 0, err
		}
		if c > 0 {
			targets = targets.Or(sub)
		}
	}
	n, err = targets.Count()
	if err != nil {
		return nil, 0, err
	}
	return targets, n, nil
}

// describeTargets lists candidates as "0 - <a ...>" entries.
func describeTargets(targets browser.Elements, n int) string {
	items := make([]string, 0, n)
	for i := range n {
		html, err := targets.Nth(i).Describe()
		if err != nil || html == "" {
			html = "<unknown element>"
		}
		items = append(items, fmt.Sprintf("%d - %s", i, html))
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func clickFailure(err error) Result {
	if browser.IsTimeout(err) {
		return Failure("Click timed out, element might not be clickable")
	}
	return Failure("Click failed: " + err.Error())
}

func runClickByText(ctx Context, args Args) Result {
	targets, n, err := findTargets(ctx.Page, args.String("text"))
	switch {
	case err != nil:
		return Failure("Could not search the page: " + err.Error())
	case n == 0:
		return Failure("Text not found on page")
	case n > 1:
		return Failure("Multiple targets found: " + describeTargets(targets, n) +
			"\n\nPlease specify the index of the element to click on using the " + Name("ClickByTextIth") + " action.")
	}
	if err := targets.Click(); err != nil {
		return clickFailure(err)
	}
	return Success("Clicked on the element that contains the given text.")
}

func runClickByTextIth(ctx Context, args Args) Result {
	ith := args.Int("ith")
	targets, n, err := findTargets(ctx.Page, args.String("text"))
	switch {
	case err != nil:
		return Failure("Could not search the page: " + err.Error())
	case n == 0:
		return Failure("Text not found on page")
	case ith < 0 || ith >= n:
		return Failure(fmt.Sprintf("Not enough targets found: %d matches, index %d requested. Candidates: %s",
			n, ith, describeTargets(targets, n)))
	}
	if err := targets.Nth(ith).Click(); err != nil {
		return clickFailure(err)
	}
	return Success("Clicked on the ith element that contains the given text.")
}

func runScrollToText(ctx Context, args Args) Result {
	targets, n, err := findTargets(ctx.Page, args.String("text"))
	switch {
	case err != nil:
		return Failure("Could not search the page: " + err.Error())
	case n == 0:
		return Failure("Text not found on page")
	case n > 1:
		return Failure("Multiple targets found: " + describeTargets(targets, n) +
			"\n\nPlease specify the index of the element to focus on using the " + Name("ScrollToIthText") + " action.")
	}
	if err := targets.Focus(); err != nil {
		return Failure("Could not focus the element: " + err.Error())
	}
	return Success("Searched for the given text on the current page and focused on it.")
}

func runScrollToIthText(ctx Context, args Args) Result {
	ith := args.Int("ith")
	targets, n, err := findTargets(ctx.Page, args.String("text"))
	switch {
	case err != nil:
		return Failure("Could not search the page: " + err.Error())
	case n == 0:
		return Failure("Text not found on page")
	case ith < 0 || ith >= n:
		return Failure(fmt.Sprintf("Not enough targets found: %d matches, index %d requested. Candidates: %s",
			n, ith, describeTargets(targets, n)))
	}
	if err := targets.Nth(ith).Focus(); err != nil {
		return Failure("Could not focus the element: " + err.Error())
	}
	return Success("Searched for the ith given text on the current page and focused on it.")
}

func scroll(page browser.Page, delta float64) Result {
	before, err := browser.ScrollOffset(page)
	if err != nil {
		return Failure("Could not read the scroll position: " + err.Error())
	}
	if err := page.Mouse().Wheel(0, delta); err != nil {
		return Failure("Could not scroll: " + err.Error())
	}
	after, err := browser.ScrollOffset(page)
	if err != nil {
		return Unknown("Sent scroll command, but could not read the scroll position afterwards.")
	}

	if after == before {
		if delta < 0 {
			return Failure("Page did not scroll, already at the top.")
		}
		return Failure("Page did not scroll, already at the bottom.")
	}
	if delta < 0 {
		return Success("Scrolled up on the page.")
	}
	return Success("Scrolled down on the page.")
}

func runTypeText(ctx Context, args Args) Result {
	text := args.String("text")
	if err := ctx.Page.Keyboard().Type(text); err != nil {
		return Failure("Could not type into the focused element: " + err.Error())
	}
	if args.Bool("press_enter") {
		if err := ctx.Page.Keyboard().Press("Enter"); err != nil {
			return Failure("Typed the text but could not press Enter: " + err.Error())
		}
	}
	return Success(fmt.Sprintf("Typed '%s' into the focused element.", text))
}

func runClearInputField(ctx Context, _ Args) Result {
	if err := browser.ClearFocusedValue(ctx.Page); err != nil {
		return Failure("Could not clear the input field: " + err.Error())
	}
	return Success("Cleared the input field.")
}

// runClickByCoords clicks screenshot coordinates. Screenshots are taken in
// device pixels, so coordinates are scaled back to CSS pixels first.
func runClickByCoords(ctx Context, args Args) Result {
	ratio, err := browser.DevicePixelRatio(ctx.Page)
	if err != nil || ratio <= 0 {
		ratio = 1
	}
	x := float64(args.Int("x")) / ratio
	y := float64(args.Int("y")) / ratio

	eff, err := ctx.Page.ObserveEffects(effectWindow, func() error {
		return ctx.Page.Mouse().Click(x, y)
	})
	if err != nil {
		return Failure("Could not click on the given coordinates: " + err.Error())
	}
	if !eff.Any() {
		return Unknown("Clicked on the given coordinates, but no effect was observed.")
	}
	return Success("Clicked on the given coordinates, observed: " + eff.String() + ".")
}

func runBack(ctx Context, _ Args) Result {
	// Going back from the first page is a no-op, not a failure.
	_ = ctx.Page.GoBack()
	return Success("Go back to the previous page.")
}

func runReset(ctx Context, _ Args) Result {
	if _, err := ctx.Page.Goto(ctx.Task.URL); err != nil {
		if browser.IsTimeout(err) {
			return Info("Page did not indicate that it was loaded. Proceeding anyway.")
		}
		return Failure("Could not reset to the initial page: " + err.Error())
	}
	if err := ctx.Page.WaitForIdle(); err != nil && browser.IsTimeout(err) {
		return Info("Page did not indicate that it was loaded. Proceeding anyway.")
	}
	return Success("Reset the browser to the initial starting page.")
}
