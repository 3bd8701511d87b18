package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store summary counts",
	Long:  `Displays the number of ingested files, contracts, and readings, plus the ingest ledger.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	sum, err := db.Summary()
	if err != nil {
		return fmt.Errorf("querying summary: %w", err)
	}

	fmt.Printf("Source files: %d\n", sum.SourceFiles)
	fmt.Printf("Contracts:    %d\n", sum.Contracts)
	fmt.Printf("Readings:     %d\n", sum.Readings)

	files, err := db.ListSourceFiles()
	if err != nil {
		return fmt.Errorf("listing source files: %w", err)
	}

	if len(files) > 0 {
		fmt.Println("\nIngest ledger:")
		fmt.Println("----------------------------------------")
		for _, f := range files {
			fmt.Printf("%s  %s  %s\n", f.IngestedAt.Format("2006-01-02 15:04:05"), f.Digest[:12], f.Name)
		}
	}

	return nil
}
