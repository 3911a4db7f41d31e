package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/shanehull/preminder/internal/store"
)

var chatAssistant bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Record and read the query-refinement conversation of an event",
}

var chatAddCmd = &cobra.Command{
	Use:   "add [event-id] [message]",
	Short: "Append a turn to an event's conversation",
	Args:  cobra.ExactArgs(2),
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

		turn, err := db.AddChatTurn(cmd.Context(), id, args[1], !chatAssistant)
		if errors.Is(err, store.ErrEventNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Turn %d added to event %d\n", turn.ID, id)
		return nil
	},
}

var chatListCmd = &cobra.Command{
	Use:   "list [event-id]",
	Short: "Print an event's conversation",
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

		turns, err := db.ChatHistory(cmd.Context(), id)
		if err != nil {
			return err
		}
		for _, turn := range turns {
			who := "assistant"
			if turn.IsUser {
				who = "user"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", turn.Timestamp.Local().Format(time.DateTime), who, turn.Message)
		}
		return nil
	},
}

func parseEventID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return id, nil
}

func init() {
	chatAddCmd.Flags().BoolVar(&chatAssistant, "assistant", false, "record the turn as an assistant reply")
	chatCmd.AddCommand(chatAddCmd, chatListCmd)
	rootCmd.AddCommand(chatCmd)
}
