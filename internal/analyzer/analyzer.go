package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-web-agent/internal/agent"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
)

// Output files inside AnalysisDir.
const (
	SummaryFile          = "summary.txt"
	ResultsFile          = "results.csv"
	EvaluatedResultsFile = "results_evaluated.csv"
)

// DefaultEvaluationDelay separates consecutive model evaluations.
const DefaultEvaluationDelay = 4 * time.Second

// EvaluatedTags are the run errors worth asking the model about.
var EvaluatedTags = []agent.ErrorTag{agent.TagStepLimit, agent.TagAborted}

type Analyzer struct {
	runDir     string
	results    []Result
	cleaned    []Result
	unfinished []string

	log   *zap.Logger
	delay time.Duration
	sleep func(time.Duration)
}

type Option func(*Analyzer)

func WithLogger(l *zap.Logger) Option { return func(a *Analyzer) { a.log = l } }

// WithEvaluationDelay sets the pause after each model evaluation.
func WithEvaluationDelay(d time.Duration) Option { return func(a *Analyzer) { a.delay = d } }

func WithSleep(fn func(time.Duration)) Option { return func(a *Analyzer) { a.sleep = fn } }

// New loads the results of runDir and creates its analysis directory.
func New(runDir string, opts ...Option) (*Analyzer, error) {
	if _, err := os.Stat(runDir); err != nil {
		return nil, fmt.Errorf("run directory %s: %w", runDir, err)
	}
	a := &Analyzer{
		runDir: runDir,
		delay:  DefaultEvaluationDelay,
		sleep:  time.Sleep,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}

	if err := os.MkdirAll(a.AnalysisDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create analysis dir: %w", err)
	}

	results, unfinished, err := LoadResults(runDir)
	if err != nil {
		return nil, err
	}
	a.results = results
	a.cleaned = Clean(results)
	a.unfinished = unfinished

	if len(unfinished) > 0 {
		numbers := make([]string, len(unfinished))
		for i, name := range unfinished {
			numbers[i], _, _ = strings.Cut(name, "_")
		}
		a.log.Warn("found unfinished tasks", zap.Int("count", len(unfinished)), zap.Strings("tasks", numbers))
	}
	return a, nil
}

func (a *Analyzer) AnalysisDir() string { return filepath.Join(a.runDir, AnalysisDir) }

func (a *Analyzer) Results() []Result    { return a.results }
func (a *Analyzer) Cleaned() []Result    { return a.cleaned }
func (a *Analyzer) Unfinished() []string { return a.unfinished }

// WriteSummary writes summary.txt and returns its content.
func (a *Analyzer) WriteSummary() (string, error) {
	s := Summary(a.results, a.cleaned)
	if err := os.WriteFile(filepath.Join(a.AnalysisDir(), SummaryFile), []byte(s), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return s, nil
}

// SaveResults writes all results to name inside the analysis directory.
func (a *Analyzer) SaveResults(name string) error {
	f, err := os.Create(filepath.Join(a.AnalysisDir(), name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := WriteCSV(f, a.results); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

// Evaluate classifies every failed run. Runs ending in one of EvaluatedTags
// get a human.eval or ai.eval cause; without either file the client is asked
// and its answer stored in ai.eval. Every result then gets its ErrorType.
func (a *Analyzer) Evaluate(ctx context.Context, client llm.Client) error {
	var pending []int
	for i, r := range a.results {
		if slices.Contains(EvaluatedTags, r.RunError) {
			pending = append(pending, i)
		}
	}
	a.log.Info("evaluating failed tasks", zap.Int("count", len(pending)))

	for _, i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		asked, err := a.evaluate(ctx, client, &a.results[i])
		if err != nil {
			return err
		}
		if asked && a.delay > 0 {
			a.sleep(a.delay)
		}
	}

	for i := range a.results {
		a.results[i].ErrorType = FinalErrorType(a.results[i])
	}
	a.cleaned = Clean(a.results)
	return nil
}

// evaluate fills in the human and AI causes of r. It reports whether the
// model was called.
func (a *Analyzer) evaluate(ctx context.Context, client llm.Client, r *Result) (bool, error) {
	dir := filepath.Join(a.runDir, r.Dir)
	log := a.log.With(zap.Int("task_number", r.Number), zap.String("task_id", r.TaskID))

	human, err := readTrimmed(filepath.Join(dir, HumanEvalFile))
	if err != nil {
		return false, fmt.Errorf("task %s: %w", r.Dir, err)
	}
	r.HumanError = llm.ErrorCause(human)

	aiPath := filepath.Join(dir, AIEvalFile)
	if _, err := os.Stat(aiPath); err == nil {
		ai, err := readTrimmed(aiPath)
		if err != nil {
			return false, fmt.Errorf("task %s: %w", r.Dir, err)
		}
		r.AIError = llm.ErrorCause(ai)
		return false, nil
	}

	run, err := loadFailedRun(dir)
	if err != nil {
		return false, fmt.Errorf("task %s: %w", r.Dir, err)
	}
	ev, err := llm.EvaluateError(ctx, client, run)
	if err != nil {
		log.Warn("error evaluation failed", zap.Error(err))
		return true, nil
	}
	log.Info("task evaluated", zap.String("cause", string(ev.Cause)), zap.String("thought_process", ev.ThoughtProcess))

	r.AIError = ev.Cause
	if err := os.WriteFile(aiPath, []byte(ev.Cause), 0o644); err != nil {
		return true, fmt.Errorf("task %s: write %s: %w", r.Dir, AIEvalFile, err)
	}
	return true, nil
}

func loadFailedRun(dir string) (llm.FailedRun, error) {
	rr, err := agent.ReadRunResult(dir)
	if err != nil {
		return llm.FailedRun{}, err
	}
	shots, err := trajectory(dir)
	if err != nil {
		return llm.FailedRun{}, err
	}
	if len(shots) > llm.EvaluatorScreenshots {
		shots = shots[len(shots)-llm.EvaluatorScreenshots:]
	}

	run := llm.FailedRun{Task: rr.Task, Actions: rr.ActionHistory, Thoughts: rr.Thoughts}
	for _, p := range shots {
		raw, err := os.ReadFile(p)
		if err != nil {
			return llm.FailedRun{}, fmt.Errorf("read screenshot: %w", err)
		}
		run.Screenshots = append(run.Screenshots, raw)
	}
	return run, nil
}

// trajectory lists the step screenshots of a task directory by step number.
func trajectory(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, agent.TrajectoryDir, "*_full_screenshot.png"))
	if err != nil {
		return nil, err
	}
	step := func(p string) int {
		prefix, _, _ := strings.Cut(filepath.Base(p), "_")
		n, _ := strconv.Atoi(prefix)
		return n
	}
	sort.Slice(paths, func(i, j int) bool { return step(paths[i]) < step(paths[j]) })
	return paths, nil
}
