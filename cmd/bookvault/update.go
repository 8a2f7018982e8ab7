package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookvault/bookvault/model"
)

var (
	updateStatus   string
	updateProgress int
	updateNotes    string
)

var updateCmd = &cobra.Command{
	Use:   "update <entry-id>",
	Short: "Update status, progress or notes of a vault entry",
	Long: `Update changes only the fields whose flags are given; everything else
is left untouched. Setting status to finished without --progress marks
the book 100% read.

Example:
  bookvault update 3 --status reading
  bookvault update 3 --progress 60
  bookvault update 3 --status finished --notes "Great ending"`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateStatus, "status", "", "new status: want, reading or finished")
	updateCmd.Flags().IntVar(&updateProgress, "progress", 0, "progress percent, clamped to 0-100")
	updateCmd.Flags().StringVar(&updateNotes, "notes", "", "replace the notes text")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", args[0])
	}

	// An absent flag means "do not touch", so the patch is built from flag
	// presence, never from zero values.
	patch := &model.VaultEntryPatch{}
	if cmd.Flags().Changed("status") {
		status, err := model.ParseReadingStatus(updateStatus)
		if err != nil {
			return err
		}
		patch.Status = &status
	}
	if cmd.Flags().Changed("progress") {
		patch.ProgressPercent = &updateProgress
	}
	if cmd.Flags().Changed("notes") {
		patch.Notes = &updateNotes
	}

	vb, err := appStore.UpdateVaultEntry(id, patch)
	if err != nil {
		return err
	}

	fmt.Printf("Updated %q (status %s, %d%%)\n", vb.Book.Title, vb.Entry.Status, vb.Entry.ProgressPercent)
	return nil
}
