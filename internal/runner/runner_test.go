package runner_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbenliogludev/go-web-agent/internal/agent"
	"github.com/nbenliogludev/go-web-agent/internal/browser/browsertest"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
	"github.com/nbenliogludev/go-web-agent/internal/llm/llmtest"
	"github.com/nbenliogludev/go-web-agent/internal/runner"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

// gauge tracks how many clients are inside Generate at once.
type gauge struct {
	active, max atomic.Int32

	mu   sync.Mutex
	keys []string
}

type slowClient struct {
	inner llm.Client
	g     *gauge
}

func (c slowClient) Generate(ctx context.Context, req llm.Request, out any) error {
	n := c.g.active.Add(1)
	defer c.g.active.Add(-1)
	for {
		m := c.g.max.Load()
		if n <= m || c.g.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return c.inner.Generate(ctx, req, out)
}

func (g *gauge) factory(replies ...llmtest.Reply) runner.ClientFactory {
	return func(key string) (llm.Client, error) {
		g.mu.Lock()
		g.keys = append(g.keys, key)
		g.mu.Unlock()
		return slowClient{inner: &llmtest.Client{Replies: replies}, g: g}, nil
	}
}

func browsers() (runner.BrowserFactory, *[]*browsertest.Browser) {
	var (
		mu  sync.Mutex
		all []*browsertest.Browser
	)
	return func() (runner.Browser, error) {
		b := browsertest.NewBrowser("about:blank")
		mu.Lock()
		all = append(all, b)
		mu.Unlock()
		return b, nil
	}, &all
}

func tasks(n int) []task.Task {
	out := make([]task.Task, n)
	for i := range out {
		out[i] = task.Task{
			Identifier:      "task" + string(rune('a'+i)),
			Description:     "Do something",
			URL:             "https://example.com/",
			Level:           task.LevelMedium,
			Number:          i,
			ReferenceLength: 4,
		}
	}
	return out
}

func noSleep(time.Duration) {}

func newRunner(t *testing.T, keys []string, clients runner.ClientFactory, browsers runner.BrowserFactory, opts ...runner.Option) *runner.Runner {
	t.Helper()
	r, err := runner.New(runner.Options{
		RunID:      "test-run",
		OutputRoot: t.TempDir(),
		StepFactor: 2.5,
		APIKeys:    keys,
	}, browsers, clients, append([]runner.Option{runner.WithSleep(noSleep)}, opts...)...)
	require.NoError(t, err)
	return r
}

func TestRunAllBoundsConcurrencyByKeys(t *testing.T) {
	g := &gauge{}
	newBrowser, made := browsers()
	r := newRunner(t, []string{"k1", "k2"}, g.factory(llmtest.Decide("done", "finish('ok')")), newBrowser)

	sum, err := r.RunAll(context.Background(), tasks(5))
	require.NoError(t, err)
	assert.Equal(t, runner.Summary{Scheduled: 5, Finished: 5}, sum)
	assert.LessOrEqual(t, g.max.Load(), int32(2))
	assert.ElementsMatch(t, []string{"k1", "k2"}, uniq(g.keys))

	require.Len(t, *made, 5)
	for _, b := range *made {
		assert.True(t, b.Closed, "every browser session is closed")
	}
	for _, tk := range tasks(5) {
		_, err := os.Stat(filepath.Join(r.OutputDir(), tk.DirName(), agent.ResultFile))
		assert.NoError(t, err)
	}
}

func TestRunAllSequentialWithOneKey(t *testing.T) {
	g := &gauge{}
	newBrowser, _ := browsers()
	r := newRunner(t, []string{"only"}, g.factory(llmtest.Decide("done", "finish('ok')")), newBrowser)

	_, err := r.RunAll(context.Background(), tasks(3))
	require.NoError(t, err)
	assert.Equal(t, int32(1), g.max.Load())
}

func TestRunAllSkipsExecutedTasks(t *testing.T) {
	g := &gauge{}
	newBrowser, made := browsers()
	r := newRunner(t, []string{"k"}, g.factory(llmtest.Decide("done", "finish('ok')")), newBrowser)

	ts := tasks(3)
	dir := filepath.Join(r.OutputDir(), ts[1].DirName())
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, agent.ResultFile), []byte("{}"), 0o644))

	sum, err := r.RunAll(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, runner.Summary{Scheduled: 2, Skipped: 1, Finished: 2}, sum)
	assert.Len(t, *made, 2)
}

func TestRunAllStopsSchedulingOnInterrupt(t *testing.T) {
	g := &gauge{}
	newBrowser, _ := browsers()
	var checks int
	r := newRunner(t, []string{"k"}, g.factory(llmtest.Decide("done", "finish('ok')")), newBrowser,
		runner.WithInterrupt(func() bool { checks++; return checks > 1 }))

	sum, err := r.RunAll(context.Background(), tasks(4))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Scheduled)
	assert.Equal(t, 1, sum.Finished)
}

func TestRunAllCountsFailures(t *testing.T) {
	g := &gauge{}
	newBrowser, _ := browsers()
	r := newRunner(t, []string{"k"}, g.factory(llmtest.Decide("stuck", "scroll_down()")), newBrowser)

	sum, err := r.RunAll(context.Background(), tasks(2))
	require.NoError(t, err)
	assert.Equal(t, runner.Summary{Scheduled: 2, Failed: 2}, sum)

	raw, err := os.ReadFile(filepath.Join(r.OutputDir(), tasks(2)[0].DirName(), agent.ErrorFile))
	require.NoError(t, err)
	assert.Equal(t, "STEP_LIMIT_ERROR", string(raw))
}

func TestRunAllBrowserStartFailure(t *testing.T) {
	g := &gauge{}
	boom := errors.New("playwright driver missing")
	r := newRunner(t, []string{"k"}, g.factory(llmtest.Decide("done", "finish('ok')")),
		func() (runner.Browser, error) { return nil, boom })

	sum, err := r.RunAll(context.Background(), tasks(2))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, sum.Failed)
}

func TestRunByID(t *testing.T) {
	g := &gauge{}
	newBrowser, _ := browsers()
	r := newRunner(t, []string{"first", "second"}, g.factory(llmtest.Decide("done", "finish('42')")), newBrowser)

	out, err := r.RunByID(context.Background(), tasks(3), "taskb")
	require.NoError(t, err)
	assert.Equal(t, "42", out.Response)
	assert.Equal(t, []string{"first"}, g.keys)

	res, err := agent.ReadRunResult(filepath.Join(r.OutputDir(), "taskb"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Number)

	_, err = r.RunByID(context.Background(), tasks(3), "nope")
	assert.ErrorContains(t, err, "task with id nope not found")
}

func TestMaxStepsCapsLimit(t *testing.T) {
	g := &gauge{}
	newBrowser, _ := browsers()
	r, err := runner.New(runner.Options{
		RunID:      "capped",
		OutputRoot: t.TempDir(),
		StepFactor: 2.5,
		MaxSteps:   2,
		APIKeys:    []string{"k"},
	}, newBrowser, g.factory(llmtest.Decide("stuck", "scroll_down()")), runner.WithSleep(noSleep))
	require.NoError(t, err)

	out, err := r.RunTask(context.Background(), tasks(1)[0], filepath.Join(r.OutputDir(), "x"), "k")
	require.NoError(t, err)
	assert.Equal(t, agent.TagStepLimit, out.Tag)
	assert.Equal(t, 2, out.Steps)
}

func TestNewValidates(t *testing.T) {
	_, err := runner.New(runner.Options{StepFactor: 2.5}, nil, nil)
	assert.ErrorIs(t, err, runner.ErrNoAPIKey)

	_, err = runner.New(runner.Options{APIKeys: []string{"k"}}, nil, nil)
	assert.Error(t, err)

	r, err := runner.New(runner.Options{APIKeys: []string{"k"}, StepFactor: 1}, nil, nil)
	require.NoError(t, err)
	_, err = time.Parse(runner.RunIDLayout, r.RunID())
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join("output", r.RunID()), r.OutputDir())
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
