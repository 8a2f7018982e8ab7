package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookvault/bookvault/model"
)

var (
	listStatus string
	listQuery  string
	listGenre  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List vault entries, most recently touched first",
	Long: `List shows the vault, optionally filtered. Filters combine with AND.

Example:
  bookvault list
  bookvault list --status reading
  bookvault list --query tolkien --genre Fantasy`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status: want, reading or finished")
	listCmd.Flags().StringVar(&listQuery, "query", "", "case-insensitive substring of title or author")
	listCmd.Flags().StringVar(&listGenre, "genre", "", "substring of the genres list")
}

func runList(cmd *cobra.Command, args []string) error {
	find := &model.FindVaultBooks{}
	if listStatus != "" {
		status, err := model.ParseReadingStatus(listStatus)
		if err != nil {
			return err
		}
		find.Status = &status
	}
	if listQuery != "" {
		find.Query = &listQuery
	}
	if listGenre != "" {
		find.GenreContains = &listGenre
	}

	list, err := appStore.GetVaultBooks(find)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No books in the vault")
		return nil
	}

	for _, vb := range list {
		line := fmt.Sprintf("%4d  [%s %3d%%]  %s", vb.Entry.ID, vb.Entry.Status, vb.Entry.ProgressPercent, vb.Book.Title)
		if vb.Book.Author != "" {
			line += " by " + vb.Book.Author
		}
		fmt.Println(line)
	}
	return nil
}
