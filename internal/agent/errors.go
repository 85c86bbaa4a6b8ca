package agent

import (
	"strings"

	"github.com/nbenliogludev/go-web-agent/internal/llm"
)

// ErrorTag classifies how a task run ended when it did not finish cleanly.
// It is written verbatim to error.txt.
type ErrorTag string

const (
	TagURLLoad       ErrorTag = "URL_LOAD_ERROR"
	TagStepLimit     ErrorTag = "STEP_LIMIT_ERROR"
	TagLLM           ErrorTag = "LLM_ERROR"
	TagActionParsing ErrorTag = "LLM_ACTION_PARSING_ERROR"
	TagAborted       ErrorTag = "LLM_ABORTED_ERROR"
)

// knownProblem is a start URL the agent cannot get past.
type knownProblem struct {
	prefix string
	reason llm.ErrorCause
}

// Checked before anything else; these sites fail every run.
var knownProblems = []knownProblem{
	{"https://www.gamestop.com/", llm.CausePageBlocked},                    // bot protection after a few pages
	{"https://www.kbb.com/", llm.CausePageBlocked},                         // bot protection after a few pages
	{"https://www.google.com/shopping?udm=28", llm.CauseHumanVerification}, // captcha after typing
	{"https://seatgeek.com/", llm.CauseHumanVerification},                  // captcha on load
	{"https://doctor.webmd.com/", llm.CauseHumanVerification},              // captcha after clicking
	{"https://www.thumbtack.com/", llm.CausePageLoad},                      // permanent 404
}

// KnownProblem reports the tag of a task URL that is known to fail.
func KnownProblem(url string) (ErrorTag, bool) {
	for _, p := range knownProblems {
		if strings.Contains(url, p.prefix) {
			return ErrorTag(p.reason), true
		}
	}
	return "", false
}

// KnownProblemTags lists every tag KnownProblem can return.
func KnownProblemTags() []ErrorTag {
	var out []ErrorTag
	seen := map[ErrorTag]bool{}
	for _, p := range knownProblems {
		tag := ErrorTag(p.reason)
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
