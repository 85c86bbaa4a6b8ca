// Package analyzer aggregates the outputs of a run directory: it loads the
// per-task results, drops runs that failed for infrastructure reasons,
// summarizes success rates and classifies why the remaining runs failed.
package analyzer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/nbenliogludev/go-web-agent/internal/agent"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

// AnalysisDir holds the analyzer outputs inside a run directory.
const AnalysisDir = "#analysis"

// Evaluation files a task directory may carry.
const (
	HumanEvalFile = "human.eval"
	AIEvalFile    = "ai.eval"
)

// Result is one executed task.
type Result struct {
	Number  int
	TaskID  string
	Level   task.Level
	Dir     string
	Success bool

	RunError   agent.ErrorTag
	HumanError llm.ErrorCause
	AIError    llm.ErrorCause
	// ErrorType is the resolved failure cause, empty on success.
	ErrorType llm.ErrorCause
}

// LoadResults reads every task directory of runDir. Directories without a
// result.json are returned as unfinished. Results are sorted by task number.
func LoadResults(runDir string) ([]Result, []string, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		return nil, nil, fmt.Errorf("read run dir: %w", err)
	}

	var (
		results    []Result
		unfinished []string
	)
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), AnalysisDir) {
			continue
		}
		dir := filepath.Join(runDir, e.Name())

		rr, err := agent.ReadRunResult(dir)
		if errors.Is(err, fs.ErrNotExist) {
			unfinished = append(unfinished, e.Name())
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("task %s: %w", e.Name(), err)
		}

		tag, err := readTrimmed(filepath.Join(dir, agent.ErrorFile))
		if err != nil {
			return nil, nil, fmt.Errorf("task %s: %w", e.Name(), err)
		}
		results = append(results, Result{
			Number:   rr.Number,
			TaskID:   rr.TaskID,
			Level:    rr.Level,
			Dir:      e.Name(),
			Success:  tag == "",
			RunError: agent.ErrorTag(tag),
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Number < results[j].Number })
	return results, unfinished, nil
}

// IgnoredTags are run errors caused by the environment rather than the
// agent. They are not counted against the success rate.
func IgnoredTags() []agent.ErrorTag {
	return append([]agent.ErrorTag{agent.TagLLM, agent.TagURLLoad}, agent.KnownProblemTags()...)
}

// Clean drops results whose run error is one of IgnoredTags.
func Clean(results []Result) []Result {
	ignored := IgnoredTags()
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if slices.Contains(ignored, r.RunError) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FinalErrorType resolves the failure cause of r. A human evaluation wins
// over an AI one, which wins over the run error.
func FinalErrorType(r Result) llm.ErrorCause {
	switch {
	case r.HumanError != "":
		return r.HumanError
	case r.AIError != "":
		return r.AIError
	case r.RunError == "":
		return ""
	case r.RunError == agent.TagURLLoad:
		return llm.CausePageLoad
	}
	if c, ok := llm.ParseCause(string(r.RunError)); ok {
		return c
	}
	return llm.CauseOther
}

// readTrimmed returns the trimmed content of path, or "" if it does not exist.
func readTrimmed(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
