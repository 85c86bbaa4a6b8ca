package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-web-agent/internal/config"
	"github.com/nbenliogludev/go-web-agent/internal/logging"
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "agent-cli",
		Short:         "LLM driven web agent",
		Long:          "Runs an LLM driven browser agent over a task dataset and analyzes the results.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", "", "path to a YAML config file")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewAnalyzeCommand())
	cmd.AddCommand(NewActionsCommand())
	return cmd
}

// loadConfig reads the config named by --config plus .env and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.NewLoader().WithConfigPath(path).Load()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

var errNotConfirmed = errors.New("not confirmed")

func askConfirmation(reader *bufio.Reader, out io.Writer, msg string) (bool, error) {
	fmt.Fprint(out, msg+" [y/N]: ")
	res, err := reader.ReadString('\n')
	if err != nil && res == "" {
		return false, err
	}
	return strings.TrimSpace(strings.ToLower(res)) == "y", nil
}

// confirmVPN asks until the user types y. Sites tend to block the IP of a
// long benchmark run.
func confirmVPN(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	msg := "To avoid getting your IP blocked, it is recommended to use a VPN. Continue?"
	for {
		ok, err := askConfirmation(reader, out, msg)
		if err != nil {
			return fmt.Errorf("%w: %v", errNotConfirmed, err)
		}
		if ok {
			return nil
		}
		msg = "You did not confirm. Type y once your VPN is connected."
	}
}
