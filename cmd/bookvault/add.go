package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookvault/bookvault/model"
)

var (
	addTitle       string
	addAuthor      string
	addYear        int
	addDescription string
	addGenres      []string
	addCoverURL    string
	addISBN10      string
	addISBN13      string
	addSource      string
	addSourceID    string
	addStatus      string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a book to the vault",
	Long: `Add records a book and starts tracking it.

Adding the same external (source, source-id) pair twice refreshes the
stored metadata and returns the existing vault entry instead of creating
a duplicate.

Example:
  bookvault add --title "Dune" --author "Frank Herbert" --genre sci-fi
  bookvault add --title "The Hobbit" --status reading`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "book title (required)")
	addCmd.Flags().StringVar(&addAuthor, "author", "", "author")
	addCmd.Flags().IntVar(&addYear, "year", 0, "publication year")
	addCmd.Flags().StringVar(&addDescription, "description", "", "description")
	addCmd.Flags().StringSliceVar(&addGenres, "genre", nil, "genre (repeatable)")
	addCmd.Flags().StringVar(&addCoverURL, "cover-url", "", "cover image URL")
	addCmd.Flags().StringVar(&addISBN10, "isbn10", "", "ISBN-10")
	addCmd.Flags().StringVar(&addISBN13, "isbn13", "", "ISBN-13")
	addCmd.Flags().StringVar(&addSource, "source", "", "external catalog identifier")
	addCmd.Flags().StringVar(&addSourceID, "source-id", "", "id within the external catalog")
	addCmd.Flags().StringVar(&addStatus, "status", "want", "initial status: want, reading or finished")
	_ = addCmd.MarkFlagRequired("title")
}

func runAdd(cmd *cobra.Command, args []string) error {
	status, err := model.ParseReadingStatus(addStatus)
	if err != nil {
		return err
	}

	draft := &model.BookDraft{
		Title:          addTitle,
		Author:         addAuthor,
		Year:           addYear,
		Description:    addDescription,
		Genres:         addGenres,
		CoverURL:       addCoverURL,
		ISBN10:         addISBN10,
		ISBN13:         addISBN13,
		ExternalSource: addSource,
		ExternalID:     addSourceID,
	}

	vb, err := appStore.AddToVault(draft, status)
	if err != nil {
		return err
	}

	fmt.Printf("Added %q (entry %d, status %s)\n", vb.Book.Title, vb.Entry.ID, vb.Entry.Status)
	return nil
}
