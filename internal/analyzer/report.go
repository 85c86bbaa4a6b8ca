package analyzer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nbenliogludev/go-web-agent/internal/agent"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

var separator = strings.Repeat("-", 100) + "\n"

// Summary renders the run summary. all is every loaded result, cleaned is
// the subset left after Clean.
func Summary(all, cleaned []Result) string {
	var b strings.Builder

	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "Found %d tasks\n", len(all))
	b.WriteString(separator)

	var ignored []string
	for _, t := range IgnoredTags() {
		ignored = append(ignored, string(t))
	}
	fmt.Fprintf(&b, "After cleaning (removing %s)\n\n", strings.Join(ignored, ", "))
	fmt.Fprintf(&b, "Found %d tasks after cleaning\n", len(cleaned))
	ok := countSuccess(cleaned)
	fmt.Fprintf(&b, "Successfully completed tasks: %d\n", ok)
	fmt.Fprintf(&b, "Success rate: %.2f%%\n", rate(ok, len(cleaned)))

	b.WriteString("\nSuccess rate by level:\n")
	for _, level := range levels(cleaned) {
		var in []Result
		for _, r := range cleaned {
			if r.Level == level {
				in = append(in, r)
			}
		}
		n := countSuccess(in)
		fmt.Fprintf(&b, "%s: %.2f%% (%d/%d)\n", level, rate(n, len(in)), n, len(in))
	}

	b.WriteString("\nSpecial error types:\n")
	counts := map[agent.ErrorTag]int{}
	var order []agent.ErrorTag
	for _, r := range cleaned {
		if r.RunError == "" {
			continue
		}
		if counts[r.RunError] == 0 {
			order = append(order, r.RunError)
		}
		counts[r.RunError]++
	}
	for _, tag := range order {
		fmt.Fprintf(&b, "%s: %d\n", tag, counts[tag])
	}
	b.WriteString(separator)

	for _, tag := range IgnoredTags() {
		var numbers []string
		for _, r := range all {
			if r.RunError == tag {
				numbers = append(numbers, strconv.Itoa(r.Number))
			}
		}
		fmt.Fprintf(&b, "Found %d tasks with %s\n", len(numbers), tag)
		b.WriteString(strings.Join(numbers, " "))
		b.WriteString("\n" + separator)
	}
	return b.String()
}

// WriteCSV writes results as a semicolon separated table.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	header := []string{"task_number", "identifier", "level", "success", "run_error_type", "human_error_type", "ai_error_type", "error_type"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Number),
			r.TaskID,
			string(r.Level),
			strconv.FormatBool(r.Success),
			string(r.RunError),
			string(r.HumanError),
			string(r.AIError),
			string(r.ErrorType),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func countSuccess(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// levels lists the levels of results in order of first appearance.
func levels(results []Result) []task.Level {
	var out []task.Level
	seen := map[task.Level]bool{}
	for _, r := range results {
		if !seen[r.Level] {
			seen[r.Level] = true
			out = append(out, r.Level)
		}
	}
	return out
}
