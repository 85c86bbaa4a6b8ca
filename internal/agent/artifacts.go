package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nbenliogludev/go-web-agent/internal/task"
)

// Files of a task output directory.
const (
	ResultFile    = "result.json"
	ErrorFile     = "error.txt"
	LLMErrorFile  = "llm_error.txt"
	HistoryFile   = "action_history.txt"
	TrajectoryDir = "trajectory"
)

// ScreenshotPath is where the screenshot of a step is stored.
func ScreenshotPath(outputDir string, step int) string {
	return filepath.Join(outputDir, TrajectoryDir, strconv.Itoa(step)+"_full_screenshot.png")
}

// RunResult is the content of result.json.
type RunResult struct {
	Number              int        `json:"number"`
	TaskID              string     `json:"task_id"`
	Task                string     `json:"task"`
	Level               task.Level `json:"level"`
	FinalResultResponse string     `json:"final_result_response"`
	ActionHistory       []string   `json:"action_history"`
	Thoughts            []string   `json:"thoughts"`
}

func ReadRunResult(dir string) (RunResult, error) {
	var r RunResult
	raw, err := os.ReadFile(filepath.Join(dir, ResultFile))
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("decode %s: %w", ResultFile, err)
	}
	return r, nil
}

func writeArtifacts(dir string, t task.Task, h *History, out Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if out.Tag != "" {
		if err := os.WriteFile(filepath.Join(dir, ErrorFile), []byte(out.Tag), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", ErrorFile, err)
		}
	}
	if out.Tag == TagLLM {
		if err := os.WriteFile(filepath.Join(dir, LLMErrorFile), []byte(out.Tag), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", LLMErrorFile, err)
		}
	}

	transcript := fmt.Sprintf("Task description: %s\nTask url: %s\nTask output dir: %s\nAction history: %s\n",
		t.Description, t.URL, dir, h.String())
	if err := os.WriteFile(filepath.Join(dir, HistoryFile), []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", HistoryFile, err)
	}

	res := RunResult{
		Number:              t.Number,
		TaskID:              t.Identifier,
		Task:                t.Description,
		Level:               t.Level,
		FinalResultResponse: out.Response,
		ActionHistory:       h.Calls(),
		Thoughts:            h.Thoughts(),
	}
	raw, err := json.MarshalIndent(res, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ResultFile), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ResultFile, err)
	}
	return nil
}
