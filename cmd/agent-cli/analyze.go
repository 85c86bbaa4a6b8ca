package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-web-agent/internal/analyzer"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
)

func NewAnalyzeCommand() *cobra.Command {
	var (
		runID    string
		output   string
		evaluate bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize the results of a run",
		Long: `Summarize a run directory into #analysis/summary.txt and #analysis/results.csv.
With --evaluate every run that hit the step limit or was aborted is classified by
the model; the cause is cached in ai.eval and a human.eval file takes precedence.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Runner.OutputRoot = output
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := analyzer.New(filepath.Join(cfg.Runner.OutputRoot, runID), analyzer.WithLogger(log))
			if err != nil {
				return err
			}
			summary, err := a.WriteSummary()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), summary)
			if err := a.SaveResults(analyzer.ResultsFile); err != nil {
				return err
			}
			if !evaluate {
				return nil
			}

			if len(cfg.LLM.APIKeys) == 0 {
				return fmt.Errorf("--evaluate needs an LLM API key")
			}
			client, err := llm.NewOpenAIClient(cfg.ClientConfig(cfg.LLM.APIKeys[0]))
			if err != nil {
				return err
			}
			if err := a.Evaluate(cmd.Context(), client); err != nil {
				return err
			}
			return a.SaveResults(analyzer.EvaluatedResultsFile)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "run id to analyze")
	cmd.Flags().StringVar(&output, "output", "", "root directory for run outputs")
	cmd.Flags().BoolVar(&evaluate, "evaluate", false, "classify failed runs with the model")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
