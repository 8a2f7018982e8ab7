package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove <entry-id>",
	Short: "Remove an entry from the vault",
	Long: `Remove deletes the tracking entry. The book's metadata is kept so a
later re-add does not lose it. Removing an id that does not exist is
not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", args[0])
	}

	if err := appStore.RemoveFromVault(id); err != nil {
		return err
	}
	fmt.Printf("Removed vault entry %d\n", id)
	return nil
}
