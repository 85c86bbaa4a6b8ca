package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-web-agent/internal/browser"
	"github.com/nbenliogludev/go-web-agent/internal/config"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
	"github.com/nbenliogludev/go-web-agent/internal/metrics"
	"github.com/nbenliogludev/go-web-agent/internal/runner"
	"github.com/nbenliogludev/go-web-agent/internal/task"
)

type runFlags struct {
	runID           string
	startIndex      int
	taskID          string
	taskIDs         []string
	taskNumbers     []int
	level           string
	disableVPNCheck bool
}

func NewRunCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent on the task dataset",
		Long: `Run the agent on every selected task of the dataset. Tasks run in parallel,
one per configured API key. Re-running with the same --run-id skips tasks that
already have a result. Ctrl+C stops scheduling new tasks and lets running ones finish.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !f.disableVPNCheck {
				if err := confirmVPN(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return runTasks(cmd, cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.runID, "run-id", "", "run id, defaults to the start time")
	fl.IntVar(&f.startIndex, "start-index", 0, "skip tasks numbered below this index")
	fl.StringVar(&f.taskID, "task-id", "", "run only the task with this id")
	fl.StringSliceVar(&f.taskIDs, "task-ids", nil, "restrict the run to these task ids")
	fl.IntSliceVar(&f.taskNumbers, "task-numbers", nil, "restrict the run to these task numbers")
	fl.StringVar(&f.level, "level", string(task.LevelAll), "task level: easy, medium, hard or all")
	fl.BoolVar(&f.disableVPNCheck, "disable-vpn-check", false, "do not ask for VPN confirmation")
	fl.Float64("step-factor", 0, "step limit as a multiple of the reference length")
	fl.Int("max-steps", 0, "upper bound for the step limit of every task")
	fl.String("dataset", "", "path to the task dataset JSON")
	fl.String("output", "", "root directory for run outputs")
	fl.Bool("headless", false, "run the browser headless")
	cmd.MarkFlagsMutuallyExclusive("task-ids", "task-numbers")
	return cmd
}

// applyRunFlags copies explicitly set flags over the loaded config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	var err error
	if fl.Changed("step-factor") {
		cfg.Runner.StepFactor, err = fl.GetFloat64("step-factor")
	}
	if err == nil && fl.Changed("max-steps") {
		cfg.Runner.MaxSteps, err = fl.GetInt("max-steps")
	}
	if err == nil && fl.Changed("dataset") {
		cfg.Runner.Dataset, err = fl.GetString("dataset")
	}
	if err == nil && fl.Changed("output") {
		cfg.Runner.OutputRoot, err = fl.GetString("output")
	}
	if err == nil && fl.Changed("headless") {
		cfg.Browser.Headless, err = fl.GetBool("headless")
	}
	return err
}

func runTasks(cmd *cobra.Command, cfg *config.Config, f runFlags) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	level, err := task.ParseLevel(f.level)
	if err != nil {
		return err
	}
	all, err := task.LoadDataset(cfg.Runner.Dataset)
	if err != nil {
		return err
	}

	rec := metrics.New()
	sig := runner.NewSignalController()
	defer sig.Close()

	newBrowser := func() (runner.Browser, error) {
		m, err := browser.NewManager(cfg.BrowserOptions(), log)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	newClient := func(apiKey string) (llm.Client, error) {
		c, err := llm.NewOpenAIClient(cfg.ClientConfig(apiKey))
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	r, err := runner.New(runner.Options{
		RunID:      f.runID,
		OutputRoot: cfg.Runner.OutputRoot,
		StepFactor: cfg.Runner.StepFactor,
		MaxSteps:   cfg.Runner.MaxSteps,
		APIKeys:    cfg.LLM.APIKeys,
		Agent:      cfg.AgentConfig(),
	}, newBrowser, newClient,
		runner.WithLogger(log),
		runner.WithRecorder(rec),
		runner.WithInterrupt(sig.Interrupted),
	)
	if err != nil {
		return err
	}
	log.Info("run started", zap.String("run_id", r.RunID()), zap.String("model", cfg.LLM.Model))

	ctx := cmd.Context()
	if f.taskID != "" {
		out, err := r.RunByID(ctx, all, f.taskID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Result:", out.Response)
	} else {
		tasks, err := task.Select(all, task.Filter{
			StartIndex:  f.startIndex,
			TaskIDs:     f.taskIDs,
			TaskNumbers: f.taskNumbers,
			Level:       level,
		})
		if err != nil {
			return err
		}
		sum, err := r.RunAll(ctx, tasks)
		log.Info("run finished",
			zap.Int("scheduled", sum.Scheduled),
			zap.Int("skipped", sum.Skipped),
			zap.Int("finished", sum.Finished),
			zap.Int("failed", sum.Failed),
		)
		if err != nil {
			return err
		}
	}

	path, err := rec.WriteTextfile(r.OutputDir())
	if err != nil {
		return err
	}
	log.Info("metrics written", zap.String("path", path))
	return nil
}
