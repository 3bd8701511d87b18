package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkondo/contractviz/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.xlsx>...",
	Short: "Ingest spreadsheet exports into the store",
	Long: `Reads one or more workbook files, normalizes each sheet's wide
half-hour layout into long-format readings, and upserts them into the local
database. Files whose bytes were already ingested are skipped by content hash.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Ingest started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ing := ingest.New(db, cfg.GetSchema())

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		res, err := ing.Ingest(data, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}

		switch res.Status {
		case ingest.StatusSkipped:
			fmt.Printf("- %s\n", res.Message)
		default:
			fmt.Printf("✓ %s\n", res.Message)
		}
	}

	return nil
}
