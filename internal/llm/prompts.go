package llm

import (
	"fmt"
	"strings"
)

const agentSystemPrompt = `
You are a web agent. You will be given a task that you must complete. Always verify that you are working towards that task.

INPUT at every step:
1. Metadata: title, url and the focused element of the current page.
2. Past actions: the actions you already took and their results.
3. Available actions: the only function calls you may choose from right now.
4. Screenshots: the current page, plus the last pages you have seen.

RULES:
- Output exactly one action, written as a function call from the available actions, e.g. click_by_text('Sign in').
- Use quotes around string arguments. Do not nest calls.
- Do not take the same action more than twice in a row.
- If an action failed, read its message and try something different.
- If a click is ambiguous you will get a list of candidates; pick one with the *_ith variant.
- When you have FULLY performed the task, call finish('answer') with the requested information. Be as concise as possible.
- If the task cannot be completed (e.g. a captcha you cannot solve), call abort('reason').

RESPONSE JSON FORMAT:
{
  "thought": "...",
  "action": "click_by_text('...')"
}

`

// AgentSystemPrompt binds the fixed agent instructions to one task.
func AgentSystemPrompt(taskDescription string) string {
	return agentSystemPrompt + "TASK: " + taskDescription
}

// StepPrompt holds everything the model sees at one step.
type StepPrompt struct {
	Metadata   string
	History    string
	Actions    string
	Previous   [][]byte
	Current    []byte
	ParseError string
}

// MaxPreviousScreenshots is how many earlier screenshots accompany each step.
const MaxPreviousScreenshots = 2

// Parts renders the step into prompt parts: text first, then the previous
// screenshots, then the current one.
func (s StepPrompt) Parts() []Part {
	var b strings.Builder
	fmt.Fprintf(&b, "\nMetadata: \n%s\n\n", s.Metadata)
	fmt.Fprintf(&b, "Past actions:\n%s\n\n", s.History)
	fmt.Fprintf(&b, "Available actions:\n%s\n\n", s.Actions)
	if s.ParseError != "" {
		fmt.Fprintf(&b, "Your previous answer could not be parsed: %s\nAnswer again with a valid function call.\n\n", s.ParseError)
	}
	b.WriteString("Choose the next action to take.\n")

	parts := []Part{Text(b.String())}
	var prev [][]byte
	for _, img := range s.Previous {
		if len(img) > 0 {
			prev = append(prev, img)
		}
	}
	if len(prev) > 0 {
		if len(prev) > MaxPreviousScreenshots {
			prev = prev[len(prev)-MaxPreviousScreenshots:]
		}
		parts = append(parts, Text("Previous screenshots:"))
		for _, img := range prev {
			parts = append(parts, PNG(img))
		}
	}
	if len(s.Current) > 0 {
		parts = append(parts, Text("Current screenshot:"), PNG(s.Current))
	}
	return parts
}

const errorEvalSystemPrompt = `
You are a smart and analytical assistant that evaluates why a web agent failed to complete a task.

The possible causes are:
- OPTION_SELECTION_ERROR: the agent was unable to select an option from a dropdown or a list
- FILTER_ERROR: the agent was unable to use a search filter, the filter was not found or it was applied wrong
- CLICK_ERROR: the agent was unable to click on the element, the element was not found or the agent clicked on the wrong element
- NAVIGATION_ERROR: the agent couldn't navigate to the correct page or the page was not found
- SCROLL_ERROR: the agent was unable to scroll or scrolled infinitely without finding the element
- INPUT_ERROR: the agent was unable to input text or the text was inputted in the wrong field
- HUMAN_VERIFICATION_ERROR: the agent was unable to pass a human verification check
- PAGE_LOAD_ERROR: the agent was unable to load the page or the page was not found (e.g. 404 error)
- PAGE_BLOCKED_ERROR: the page was blocked by a bot protection (e.g. Cloudflare)
- OTHER: the agent was unable to complete the task for other reasons (only use this if none of the other causes apply)

You are given a task and the steps the agent took to complete it (until the step limit was reached or it gave up), including the screenshots of the last few steps.
You need to determine what the agent was unable to do.

Return the thought process of the evaluation and the cause of the failure.
Evaluate all possible causes without jumping to conclusions. Decide at the end.

Example:
{
  "thought_process": "The action history clearly shows that the agent was unable to click on the required element. This is also supported by the screenshots of the last few steps.",
  "cause": "CLICK_ERROR"
}
`
