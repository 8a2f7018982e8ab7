package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <entry-id>",
	Short: "Show one vault entry with its book metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", args[0])
	}

	vb, err := appStore.GetVaultBook(id)
	if err != nil {
		return err
	}
	if vb == nil {
		fmt.Printf("No vault entry with id %d\n", id)
		return nil
	}

	buf, err := json.MarshalIndent(vb, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}
