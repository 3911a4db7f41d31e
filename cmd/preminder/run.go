package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run one monitoring cycle now and print the report",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.controller.RunCycle(ctx)
		if err != nil {
			return err
		}
		return printJSON(report)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [query]",
	Short: "Search and evaluate a query without sending anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		return printJSON(a.controller.Check(cmd.Context(), args[0]))
	},
}

func init() {
	rootCmd.AddCommand(runOnceCmd)
	rootCmd.AddCommand(checkCmd)
}
