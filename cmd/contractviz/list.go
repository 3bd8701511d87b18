package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listContract string

var listCmd = &cobra.Command{
	Use:   "list [contracts|dates]",
	Short: "List stored contracts or dates",
	Long: `Displays the contracts known to the store, or with "dates" and
--contract, the days that have readings for one contract.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"contracts", "dates"},
	RunE:      runList,
}

func init() {
	listCmd.Flags().StringVar(&listContract, "contract", "", "Contract name (required for dates)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	switch args[0] {
	case "contracts":
		contracts, err := db.ListContracts()
		if err != nil {
			return fmt.Errorf("listing contracts: %w", err)
		}

		if len(contracts) == 0 {
			fmt.Println("No contracts found")
			return nil
		}

		fmt.Printf("%-6s  %s\n", "Key", "Contract")
		fmt.Println("----------------------------------------")
		for _, c := range contracts {
			fmt.Printf("%-6d  %s\n", c.ID, c.Name)
		}
		fmt.Printf("(%d contracts)\n", len(contracts))

	case "dates":
		if listContract == "" {
			return fmt.Errorf("--contract is required when listing dates")
		}

		contract, err := db.GetContractByName(listContract)
		if err != nil {
			return fmt.Errorf("looking up contract: %w", err)
		}

		dates, err := db.ListDates(contract.ID)
		if err != nil {
			return fmt.Errorf("listing dates for %s: %w", listContract, err)
		}

		if len(dates) == 0 {
			fmt.Printf("No data found for %s\n", listContract)
			return nil
		}

		for _, date := range dates {
			fmt.Println(date)
		}
		fmt.Printf("(%d days)\n", len(dates))
	}

	return nil
}
