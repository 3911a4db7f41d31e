package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Create a user, or return the existing one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		u, err := db.CreateUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %d: %s\n", u.ID, u.Email)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}
