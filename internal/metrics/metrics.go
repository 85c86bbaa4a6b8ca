// Package metrics records run statistics and exports them in the Prometheus
// text format, one file per run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webagent"

// TextfileName is the metrics file written into a run directory.
const TextfileName = "metrics.prom"

// Recorder implements agent.Recorder on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	tasksTotal   *prometheus.CounterVec
	taskDuration prometheus.Histogram
	taskSteps    prometheus.Histogram
	stepsTotal   *prometheus.CounterVec
	llmErrors    *prometheus.CounterVec
	parseErrors  prometheus.Counter
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		tasksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "Finished task runs by terminal tag (FINISHED for a clean finish).",
			},
			[]string{"tag"},
		),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Wall time of one task run.",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		}),
		taskSteps: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_steps",
			Help:      "Executed steps per task run.",
			Buckets:   prometheus.LinearBuckets(5, 5, 10),
		}),
		stepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Executed actions by result status.",
			},
			[]string{"status"},
		),
		llmErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_errors_total",
				Help:      "Failed LLM decision calls.",
			},
			[]string{"rate_limited"},
		),
		parseErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_parse_errors_total",
			Help:      "LLM answers that did not parse as an action call.",
		}),
	}
}

func (r *Recorder) TaskFinished(tag string, steps int, elapsed time.Duration) {
	if tag == "" {
		tag = "FINISHED"
	}
	r.tasksTotal.WithLabelValues(tag).Inc()
	r.taskDuration.Observe(elapsed.Seconds())
	r.taskSteps.Observe(float64(steps))
}

func (r *Recorder) StepExecuted(status string) {
	r.stepsTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) LLMError(rateLimited bool) {
	r.llmErrors.WithLabelValues(strconv.FormatBool(rateLimited)).Inc()
}

func (r *Recorder) ParseError() {
	r.parseErrors.Inc()
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes all metrics to dir/metrics.prom.
func (r *Recorder) WriteTextfile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create metrics dir: %w", err)
	}
	path := filepath.Join(dir, TextfileName)
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return "", fmt.Errorf("write metrics: %w", err)
	}
	return path, nil
}
