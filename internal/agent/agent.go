package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-web-agent/internal/action"
	"github.com/nbenliogludev/go-web-agent/internal/browser"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

// Browser is what the agent needs from a browser session.
// *browser.Manager satisfies it.
type Browser interface {
	Page() browser.Page
	LoadURL(url string) error
	CleanPage()
	SaveScreenshot(path string) ([]byte, error)
	Metadata() (browser.Metadata, error)
}

// Recorder receives run statistics. See internal/metrics.
type Recorder interface {
	TaskFinished(tag string, steps int, elapsed time.Duration)
	StepExecuted(status string)
	LLMError(rateLimited bool)
	ParseError()
}

type nopRecorder struct{}

func (nopRecorder) TaskFinished(string, int, time.Duration) {}
func (nopRecorder) StepExecuted(string)                     {}
func (nopRecorder) LLMError(bool)                           {}
func (nopRecorder) ParseError()                             {}

type Config struct {
	// MaxErrorCount is how many consecutive LLM (or parse) failures are
	// tolerated; one more ends the task.
	MaxErrorCount int
	// BackoffBase is the wait after the first LLM failure. The n-th
	// failure waits BackoffBase * e^(n-1).
	BackoffBase time.Duration
	StepDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxErrorCount: 3,
		BackoffBase:   10 * time.Second,
		StepDelay:     3 * time.Second,
	}
}

type Agent struct {
	browser  Browser
	client   llm.Client
	registry *action.Registry
	cfg      Config
	log      *zap.Logger
	metrics  Recorder
	sleep    func(time.Duration)
}

type Option func(*Agent)

func WithConfig(cfg Config) Option           { return func(a *Agent) { a.cfg = cfg } }
func WithLogger(l *zap.Logger) Option        { return func(a *Agent) { a.log = l } }
func WithRecorder(r Recorder) Option         { return func(a *Agent) { a.metrics = r } }
func WithRegistry(r *action.Registry) Option { return func(a *Agent) { a.registry = r } }

// WithSleep replaces time.Sleep for backoff and step delays.
func WithSleep(fn func(time.Duration)) Option { return func(a *Agent) { a.sleep = fn } }

func New(b Browser, c llm.Client, opts ...Option) *Agent {
	a := &Agent{
		browser: b,
		client:  c,
		cfg:     DefaultConfig(),
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = action.NewDefault()
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	if a.metrics == nil {
		a.metrics = nopRecorder{}
	}
	return a
}

// Outcome is how a task run ended.
type Outcome struct {
	// Response is the answer on a clean finish, otherwise "ABORTED: <reason>".
	Response string
	// Tag is empty on a clean finish.
	Tag   ErrorTag
	Steps int
}

func (o Outcome) Finished() bool { return o.Tag == "" }

// Run drives one task to a terminal state and writes its artifacts to
// outputDir. It returns an error for a misconfigured action registry, which
// leaves no artifacts behind, and for failures to write artifacts.
func (a *Agent) Run(ctx context.Context, t task.Task, outputDir string, stepLimit int) (Outcome, error) {
	start := time.Now()
	log := a.log.With(
		zap.Int("task_number", t.Number),
		zap.String("task_id", t.Identifier),
	)
	h := NewHistory()

	out, err := a.run(ctx, t, outputDir, stepLimit, h, log)
	if err != nil {
		log.Error("task stopped", zap.Error(err))
		return out, fmt.Errorf("task %s: %w", t.Identifier, err)
	}

	a.metrics.TaskFinished(string(out.Tag), out.Steps, time.Since(start))
	if out.Finished() {
		log.Info("task finished", zap.String("answer", out.Response), zap.Int("steps", out.Steps))
	} else {
		log.Info("task ended with error", zap.String("tag", string(out.Tag)), zap.String("response", out.Response), zap.Int("steps", out.Steps))
	}

	if err := writeArtifacts(outputDir, t, h, out); err != nil {
		return out, fmt.Errorf("write artifacts of task %s: %w", t.Identifier, err)
	}
	return out, nil
}

func (a *Agent) run(ctx context.Context, t task.Task, outputDir string, stepLimit int, h *History, log *zap.Logger) (Outcome, error) {
	if tag, ok := KnownProblem(t.URL); ok {
		log.Info("skipping known problem domain", zap.String("url", t.URL))
		return errorOutcome(tag, 0), nil
	}

	sess := llm.NewSession(a.client, t.Description)
	log.Debug("llm session started", zap.String("session", sess.ID))

	if err := a.browser.LoadURL(t.URL); err != nil {
		log.Warn("failed to load task url", zap.String("url", t.URL), zap.Error(err))
		return errorOutcome(TagURLLoad, 0), nil
	}

	var (
		step        int
		llmErrors   int
		parseErrors int
		previous    [][]byte
	)

steps:
	for {
		if step >= stepLimit {
			return errorOutcome(TagStepLimit, step), nil
		}

		a.browser.CleanPage()

		shotPath := ScreenshotPath(outputDir, step)
		shot, err := a.browser.SaveScreenshot(shotPath)
		if err != nil {
			log.Warn("screenshot failed", zap.Int("step", step), zap.Error(err))
		}
		meta, err := a.browser.Metadata()
		if err != nil {
			log.Warn("metadata failed", zap.Int("step", step), zap.Error(err))
		}

		page := a.browser.Page()
		applicable, err := a.registry.Applicable(page)
		if err != nil {
			return Outcome{Steps: step}, err
		}

		prompt := llm.StepPrompt{
			Metadata: meta.String(),
			History:  h.String(),
			Actions:  action.Render(applicable),
			Previous: previous,
			Current:  shot,
		}
		log.Info("step",
			zap.Int("step", step),
			zap.String("url", meta.URL),
			zap.String("title", meta.Title),
			zap.String("session", sess.ID),
		)

		var (
			decision llm.Decision
			act      action.Action
		)
		for {
			decision, err = sess.Decide(ctx, prompt.Parts())
			if err != nil {
				llmErrors++
				rateLimited := llm.IsRateLimited(err)
				a.metrics.LLMError(rateLimited)
				log.Warn("llm decision failed",
					zap.Int("step", step),
					zap.Int("error_count", llmErrors),
					zap.Bool("rate_limited", rateLimited),
					zap.Error(err),
				)
				if llmErrors > a.cfg.MaxErrorCount {
					log.Error("too many llm errors, check the API key")
					return errorOutcome(TagLLM, step), nil
				}
				wait := a.backoff(llmErrors)
				log.Info("retrying llm", zap.Duration("wait", wait))
				a.sleep(wait)
				sess = llm.NewSession(a.client, t.Description)
				continue steps
			}
			llmErrors = 0

			act, err = action.Parse(decision.Action, applicable)
			if err != nil {
				parseErrors++
				a.metrics.ParseError()
				log.Warn("action parsing failed",
					zap.Int("step", step),
					zap.Int("error_count", parseErrors),
					zap.Error(err),
				)
				if parseErrors > a.cfg.MaxErrorCount {
					return errorOutcome(TagActionParsing, step), nil
				}
				prompt.ParseError = err.Error()
				continue
			}
			parseErrors = 0
			break
		}

		log.Info("decision",
			zap.Int("step", step),
			zap.String("thought", decision.Thought),
			zap.String("action", act.String()),
		)

		res := act.Execute(action.Context{Page: page, Task: t})
		a.metrics.StepExecuted(string(res.Status))
		h.Add(Step{
			Thought:    decision.Thought,
			Action:     act,
			Status:     res.Status,
			Message:    res.Message,
			Screenshot: shotPath,
		})
		log.Info("action result",
			zap.Int("step", step),
			zap.String("status", res.Status.Label()),
			zap.String("message", res.Message),
		)

		switch res.Status {
		case action.StatusFinish:
			return Outcome{Response: res.Data["answer"], Steps: step + 1}, nil
		case action.StatusAbort:
			return Outcome{Response: "ABORTED: " + res.Message, Tag: TagAborted, Steps: step + 1}, nil
		}

		if len(shot) > 0 {
			previous = append(previous, shot)
		}
		if a.cfg.StepDelay > 0 {
			a.sleep(a.cfg.StepDelay)
		}
		step++
	}
}

func (a *Agent) backoff(errorCount int) time.Duration {
	return time.Duration(math.Exp(float64(errorCount-1)) * float64(a.cfg.BackoffBase))
}

func errorOutcome(tag ErrorTag, steps int) Outcome {
	return Outcome{
		Response: "ABORTED: Aborted due to following error: " + string(tag),
		Tag:      tag,
		Steps:    steps,
	}
}
