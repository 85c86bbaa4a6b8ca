package llm

import (
	"context"
	"fmt"
	"strings"
)

// ErrorCause classifies why an agent failed a task.
type ErrorCause string

const (
	CauseOptionSelection   ErrorCause = "OPTION_SELECTION_ERROR"
	CauseFilter            ErrorCause = "FILTER_ERROR"
	CauseClick             ErrorCause = "CLICK_ERROR"
	CauseNavigation        ErrorCause = "NAVIGATION_ERROR"
	CauseScroll            ErrorCause = "SCROLL_ERROR"
	CauseInput             ErrorCause = "INPUT_ERROR"
	CauseHumanVerification ErrorCause = "HUMAN_VERIFICATION_ERROR"
	CausePageLoad          ErrorCause = "PAGE_LOAD_ERROR"
	CausePageBlocked       ErrorCause = "PAGE_BLOCKED_ERROR"
	CauseOther             ErrorCause = "OTHER"
)

var Causes = []ErrorCause{
	CauseOptionSelection, CauseFilter, CauseClick, CauseNavigation, CauseScroll,
	CauseInput, CauseHumanVerification, CausePageLoad, CausePageBlocked, CauseOther,
}

// ParseCause reports whether s names a known cause.
func ParseCause(s string) (ErrorCause, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Causes {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type ErrorEvaluation struct {
	ThoughtProcess string     `json:"thought_process"`
	Cause          ErrorCause `json:"cause"`
}

var errorEvaluationSchema = func() Schema {
	enum := make([]string, len(Causes))
	for i, c := range Causes {
		enum[i] = string(c)
	}
	return Schema{
		Name:        "task_error_evaluation",
		Description: "Why the web agent failed the task.",
		Properties: map[string]string{
			"thought_process": "Your evaluation of all possible causes.",
			"cause":           "The cause of the failure.",
		},
		Order: []string{"thought_process", "cause"},
		Enums: map[string][]string{"cause": enum},
	}
}()

// FailedRun is what the evaluator sees of one unsuccessful task.
type FailedRun struct {
	Task        string
	Actions     []string
	Thoughts    []string
	Screenshots [][]byte
}

// EvaluatorScreenshots is how many of the last screenshots are attached.
const EvaluatorScreenshots = 3

// EvaluateError asks the model to classify a failed run.
func EvaluateError(ctx context.Context, client Client, run FailedRun) (ErrorEvaluation, error) {
	shots := run.Screenshots
	if len(shots) > EvaluatorScreenshots {
		shots = shots[len(shots)-EvaluatorScreenshots:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task description: %s\n", run.Task)
	fmt.Fprintf(&b, "Steps performed: \n- %s\n\n", strings.Join(run.Actions, "\n- "))
	fmt.Fprintf(&b, "Agent thoughts: \n- %s\n\n", strings.Join(run.Thoughts, "\n- "))

	parts := []Part{Text(b.String()), Text("Screenshots:\n")}
	for _, s := range shots {
		parts = append(parts, PNG(s))
	}

	var ev ErrorEvaluation
	err := client.Generate(ctx, Request{System: errorEvalSystemPrompt, Parts: parts, Schema: errorEvaluationSchema}, &ev)
	if err != nil {
		return ErrorEvaluation{}, fmt.Errorf("evaluate error: %w", err)
	}
	cause, ok := ParseCause(string(ev.Cause))
	if !ok {
		return ErrorEvaluation{}, fmt.Errorf("evaluate error: unknown cause %q", ev.Cause)
	}
	ev.Cause = cause
	return ev, nil
}
