package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bookvault/bookvault/backup"
	"github.com/bookvault/bookvault/config"
)

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the whole library to a JSON backup file",
	Long: `Export writes every table of the local database into one portable JSON
document. Without a path argument the file is written into the data
directory under a dated name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Replace the whole library from a JSON backup file",
	Long: `Import validates the backup document and then replaces every row of
the current database with the backup's contents inside one transaction.
This is not a merge: current data is deleted first. A failed import
leaves the database exactly as it was.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runExport(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	}

	svc := backup.NewService(appDB, &argPicker{path: path, defaultDir: config.Opts.Data})
	written, err := svc.Export(cmd.Context())
	if err != nil {
		return err
	}
	if written == "" {
		fmt.Println("Export cancelled")
		return nil
	}
	fmt.Printf("Exported library to %s\n", written)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	svc := backup.NewService(appDB, &argPicker{path: args[0]})
	restored, err := svc.Restore(cmd.Context())
	if err != nil {
		return err
	}
	if restored == "" {
		fmt.Println("Import cancelled")
		return nil
	}

	// The repository's cached views predate the replace.
	appStore.ResetCache()

	fmt.Printf("Restored library from %s\n", restored)
	return nil
}

// argPicker satisfies the file-selection collaborator with command-line
// arguments instead of a dialog. An empty path on open means the user gave
// nothing to import, which maps to the cancelled outcome.
type argPicker struct {
	path       string
	defaultDir string
}

func (p *argPicker) PickSave(suggested, ext string) (string, error) {
	if p.path != "" {
		return p.path, nil
	}
	if p.defaultDir == "" {
		return suggested, nil
	}
	return filepath.Join(p.defaultDir, suggested), nil
}

func (p *argPicker) PickOpen(ext string) (string, error) {
	return p.path, nil
}
