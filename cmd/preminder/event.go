package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shanehull/preminder/internal/history"
	"github.com/shanehull/preminder/internal/store"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage tracked events",
}

var eventAddCmd = &cobra.Command{
	Use:   "add [email] [query]",
	Short: "Track a finalized search query for a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		ev, err := db.CreateEvent(cmd.Context(), args[0], args[1])
		if errors.Is(err, store.ErrUserNotFound) {
			return fmt.Errorf("user %s not found, run 'preminder user add' first", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Event %d tracked: %s\n", ev.ID, ev.Query)
		return nil
	},
}

var eventListCmd = &cobra.Command{
	Use:   "list [email]",
	Short: "List a user's tracked events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		events, err := db.EventsByUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tQUERY")
		for _, ev := range events {
			fmt.Fprintf(w, "%d\t%s\t%s\n", ev.ID, ev.CreatedAt.Local().Format(time.DateTime), ev.Query)
		}
		return w.Flush()
	},
}

var eventDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Stop tracking an event and drop its chat history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEventID(args[0])
		if err != nil {
			return err
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteEvent(cmd.Context(), id); err != nil {
			return err
		}

		if cfg.Dedup.Enabled {
			forgetDispatched(id)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Event %d deleted\n", id)
		return nil
	},
}

func forgetDispatched(id int64) {
	ledger, err := history.NewManager(cfg.History.Path, logger)
	if err != nil {
		logger.Warn("Could not open dispatch history", zap.Error(err))
		return
	}
	if err := ledger.Forget(id); err != nil {
		logger.Warn("Could not clear dispatch history", zap.Int64("event_id", id), zap.Error(err))
	}
}

func init() {
	eventCmd.AddCommand(eventAddCmd, eventListCmd, eventDeleteCmd)
	rootCmd.AddCommand(eventCmd)
}
