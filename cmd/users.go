package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkolarik/gesture-gate/internal/authapi"
	"github.com/mkolarik/gesture-gate/internal/config"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List enrolled users",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	server := serverURL
	if server == "" {
		server = cfg.Gateway.URL
	}

	client, err := authapi.NewWithCapture(server, captureDir)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	users, err := client.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users enrolled")
		return nil
	}

	for _, u := range users {
		status := "enrolled"
		if !u.Enrolled {
			status = "pending"
		}
		fmt.Printf("%-20s %-30s %s\n", u.ID, u.Name, status)
	}
	fmt.Printf("\n%d user(s)\n", len(users))
	return nil
}
