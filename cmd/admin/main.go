package main

import (
	"fmt"
	"os"

	"github.com/caretrack/followup-api/cmd/admin/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "followup-admin",
		Short: "Administration tool for the follow-up API",
		Long:  "CLI tool for managing users, doctor assignments, and checking backend connectivity",
	}

	rootCmd.AddCommand(commands.NewCreateUserCmd())
	rootCmd.AddCommand(commands.NewListUsersCmd())
	rootCmd.AddCommand(commands.NewAssignCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
