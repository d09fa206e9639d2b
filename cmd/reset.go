package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cramdeck/cramdeck/internal/cacheclear"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear persisted navigation state",
	RunE: func(cmd *cobra.Command, args []string) error {
		expiredOnly, _ := cmd.Flags().GetBool("expired")

		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		cleaner := cacheclear.New(store, cacheclear.WithLogger(stderrLogger()))

		if expiredOnly {
			n, err := cleaner.Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep expired state: %w", err)
			}
			fmt.Printf("Removed %d expired slots.\n", n)
			return nil
		}

		if err := cleaner.Purge(cmd.Context()); err != nil {
			return fmt.Errorf("clear state: %w", err)
		}
		fmt.Println("Cleared persisted navigation state.")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("expired", false, "Remove only slots older than the retention window")
}
