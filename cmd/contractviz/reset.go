package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored data",
	Long: `Removes every source file, contract, and reading from the store.
This is irreversible; it refuses to run without --yes.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm deletion of all data")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to delete all data without --yes")
	}

	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Reset(); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}

	fmt.Println("✓ Store reset")
	return nil
}
