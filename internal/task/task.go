package task

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
	LevelAll    Level = "all"
)

func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelEasy, LevelMedium, LevelHard, LevelAll:
		return l, nil
	case "":
		return LevelAll, nil
	default:
		return "", fmt.Errorf("unknown task level %q (want easy, medium, hard or all)", s)
	}
}

// Task is one entry of the task dataset. Field tags follow the
// Online-Mind2Web JSON layout.
type Task struct {
	Identifier      string `json:"task_id"`
	Description     string `json:"confirmed_task"`
	URL             string `json:"website"`
	Level           Level  `json:"level"`
	Number          int    `json:"number"`
	ReferenceLength int    `json:"reference_length"`
}

// DirName is the per-task output directory name inside a run directory.
func (t Task) DirName() string {
	return fmt.Sprintf("%03d_%s", t.Number, t.Identifier)
}

// StepLimit returns round(stepFactor * ReferenceLength). A positive maxSteps
// replaces the computed limit when it is smaller.
func (t Task) StepLimit(stepFactor float64, maxSteps int) int {
	limit := int(math.RoundToEven(stepFactor * float64(t.ReferenceLength)))
	if maxSteps > 0 && maxSteps < limit {
		return maxSteps
	}
	return limit
}

func LoadDataset(path string) ([]Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("dataset JSON parse error: %w", err)
	}

	for i := range tasks {
		tasks[i].Level = Level(strings.ToLower(string(tasks[i].Level)))
	}
	return tasks, nil
}

// Filter selects the tasks of one run.
type Filter struct {
	StartIndex  int
	TaskIDs     []string
	TaskNumbers []int
	Level       Level
}

func Select(tasks []Task, f Filter) ([]Task, error) {
	if len(f.TaskIDs) > 0 && len(f.TaskNumbers) > 0 {
		return nil, fmt.Errorf("cannot filter by task ids and task numbers at the same time")
	}
	if f.StartIndex > len(tasks) {
		return nil, fmt.Errorf("start index %d is greater than the number of tasks (%d)", f.StartIndex, len(tasks))
	}

	ids := make(map[string]bool, len(f.TaskIDs))
	for _, id := range f.TaskIDs {
		ids[id] = true
	}
	numbers := make(map[int]bool, len(f.TaskNumbers))
	for _, n := range f.TaskNumbers {
		numbers[n] = true
	}

	var out []Task
	for _, t := range tasks {
		if len(ids) > 0 && !ids[t.Identifier] {
			continue
		}
		if len(numbers) > 0 && !numbers[t.Number] {
			continue
		}
		if t.Number < f.StartIndex {
			continue
		}
		if f.Level != "" && f.Level != LevelAll && t.Level != f.Level {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func FindByID(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.Identifier == id {
			return t, true
		}
	}
	return Task{}, false
}
