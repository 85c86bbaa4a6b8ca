package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nbenliogludev/go-web-agent/internal/action"
)

func NewActionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Print the action grammar shown to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), action.Render(action.NewDefault().Actions()))
			return err
		},
	}
}
