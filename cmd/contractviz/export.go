package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <dest.db>",
	Short: "Export a snapshot of the store",
	Long: `Writes a consistent snapshot of the database to the given path in
SQLite's native file format. The destination must not already exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	dest := args[0]
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("destination already exists: %s", dest)
	}

	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.ExportTo(dest); err != nil {
		return fmt.Errorf("exporting store: %w", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("checking export: %w", err)
	}

	fmt.Printf("✓ Exported store to %s (%d bytes)\n", dest, info.Size())
	return nil
}
