package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show persisted navigation state",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve state path: %w", err)
		}

		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		slots, err := store.Slots()
		if err != nil {
			return fmt.Errorf("read slots: %w", err)
		}

		fmt.Println("Database:", dbPath)
		fmt.Println("Namespace:", store.Namespace())
		fmt.Println()

		if len(slots) == 0 {
			fmt.Println("No persisted navigation state.")
			return nil
		}

		names := make([]string, 0, len(slots))
		for name := range slots {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Printf("%-18s  %s\n", "Slot", "Value")
		fmt.Println(strings.Repeat("─", 72))
		for _, name := range names {
			fmt.Printf("%-18s  %s\n", name, slots[name])
		}
		return nil
	},
}
