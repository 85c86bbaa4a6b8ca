package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nbenliogludev/go-web-agent/internal/agent"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

// RunIDLayout formats the default run id from the start time.
const RunIDLayout = "2006-01-02_15-04-05"

var ErrNoAPIKey = errors.New("no LLM API key configured")

// Browser is one browser session, owned by a single task run.
type Browser interface {
	agent.Browser
	Close()
}

type (
	BrowserFactory func() (Browser, error)
	ClientFactory  func(apiKey string) (llm.Client, error)
)

type Options struct {
	RunID      string
	OutputRoot string
	StepFactor float64
	MaxSteps   int
	// APIKeys is the credential pool. Its size bounds how many tasks run at
	// once; each running task holds one key.
	APIKeys []string
	Agent   agent.Config
}

// Summary counts what happened to the scheduled tasks.
type Summary struct {
	Scheduled int
	Skipped   int
	Finished  int
	Failed    int
}

type Runner struct {
	opts        Options
	log         *zap.Logger
	newBrowser  BrowserFactory
	newClient   ClientFactory
	recorder    agent.Recorder
	interrupted func() bool
	sleep       func(time.Duration)
}

type Option func(*Runner)

func WithLogger(l *zap.Logger) Option        { return func(r *Runner) { r.log = l } }
func WithRecorder(rec agent.Recorder) Option { return func(r *Runner) { r.recorder = rec } }

// WithInterrupt stops scheduling new tasks once fn reports true.
func WithInterrupt(fn func() bool) Option { return func(r *Runner) { r.interrupted = fn } }

// WithSleep is passed on to every agent.
func WithSleep(fn func(time.Duration)) Option { return func(r *Runner) { r.sleep = fn } }

func New(opts Options, newBrowser BrowserFactory, newClient ClientFactory, options ...Option) (*Runner, error) {
	if len(opts.APIKeys) == 0 {
		return nil, ErrNoAPIKey
	}
	if opts.StepFactor <= 0 {
		return nil, fmt.Errorf("step factor must be positive, got %v", opts.StepFactor)
	}
	if opts.RunID == "" {
		opts.RunID = time.Now().Format(RunIDLayout)
	}
	if opts.OutputRoot == "" {
		opts.OutputRoot = "output"
	}
	r := &Runner{
		opts:        opts,
		newBrowser:  newBrowser,
		newClient:   newClient,
		interrupted: func() bool { return false },
	}
	for _, o := range options {
		o(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r, nil
}

func (r *Runner) RunID() string { return r.opts.RunID }

// OutputDir is the directory of this run.
func (r *Runner) OutputDir() string {
	return filepath.Join(r.opts.OutputRoot, r.opts.RunID)
}

// RunAll runs tasks in order, at most one per API key at a time. Tasks
// whose result.json already exists are skipped, so an interrupted run can
// be resumed with the same run id.
func (r *Runner) RunAll(ctx context.Context, tasks []task.Task) (Summary, error) {
	var (
		sum Summary
		mu  sync.Mutex
	)
	if len(tasks) == 0 {
		r.log.Info("no tasks to run")
		return sum, nil
	}

	keys := make(chan string, len(r.opts.APIKeys))
	for _, k := range r.opts.APIKeys {
		keys <- k
	}
	sem := semaphore.NewWeighted(int64(len(r.opts.APIKeys)))

	r.log.Info("running tasks",
		zap.Int("tasks", len(tasks)),
		zap.Int("max_concurrent", len(r.opts.APIKeys)),
		zap.String("output_dir", r.OutputDir()),
	)

	var g errgroup.Group
	for _, t := range tasks {
		if r.interrupted() {
			r.log.Warn("interrupted, not scheduling further tasks")
			break
		}

		dir := filepath.Join(r.OutputDir(), t.DirName())
		if done(dir) {
			r.log.Info("task already executed, skipping", zap.Int("task_number", t.Number))
			sum.Skipped++
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		key := <-keys
		sum.Scheduled++

		g.Go(func() error {
			defer sem.Release(1)
			defer func() { keys <- key }()

			out, err := r.RunTask(ctx, t, dir, key)
			mu.Lock()
			defer mu.Unlock()
			if err == nil && out.Finished() {
				sum.Finished++
			} else {
				sum.Failed++
			}
			return err
		})
	}

	err := g.Wait()
	return sum, err
}

// RunByID runs a single task into <run>/<task_id> with the first key.
func (r *Runner) RunByID(ctx context.Context, tasks []task.Task, id string) (agent.Outcome, error) {
	t, ok := task.FindByID(tasks, id)
	if !ok {
		return agent.Outcome{}, fmt.Errorf("task with id %s not found", id)
	}
	return r.RunTask(ctx, t, filepath.Join(r.OutputDir(), t.Identifier), r.opts.APIKeys[0])
}

// RunTask runs one task in a fresh browser session.
func (r *Runner) RunTask(ctx context.Context, t task.Task, dir, apiKey string) (agent.Outcome, error) {
	limit := t.StepLimit(r.opts.StepFactor, r.opts.MaxSteps)
	log := r.log.With(zap.Int("task_number", t.Number), zap.String("task_id", t.Identifier))
	log.Info("task started",
		zap.String("task", t.Description),
		zap.String("website", t.URL),
		zap.String("level", string(t.Level)),
		zap.Int("step_limit", limit),
	)

	client, err := r.newClient(apiKey)
	if err != nil {
		return agent.Outcome{}, fmt.Errorf("create llm client: %w", err)
	}
	b, err := r.newBrowser()
	if err != nil {
		return agent.Outcome{}, fmt.Errorf("start browser: %w", err)
	}
	defer b.Close()

	opts := []agent.Option{agent.WithLogger(r.log), agent.WithConfig(r.agentConfig())}
	if r.recorder != nil {
		opts = append(opts, agent.WithRecorder(r.recorder))
	}
	if r.sleep != nil {
		opts = append(opts, agent.WithSleep(r.sleep))
	}

	out, err := agent.New(b, client, opts...).Run(ctx, t, dir, limit)
	if err != nil {
		log.Error("task failed", zap.Error(err))
		return out, err
	}
	log.Info("task result", zap.String("result", out.Response))
	return out, nil
}

func (r *Runner) agentConfig() agent.Config {
	if r.opts.Agent == (agent.Config{}) {
		return agent.DefaultConfig()
	}
	return r.opts.Agent
}

func done(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, agent.ResultFile))
	return err == nil
}
