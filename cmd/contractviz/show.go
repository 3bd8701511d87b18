package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	showContract string
	showDate     string
	showUnit     string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one day's 30-minute series",
	Long: `Prints the stored half-hour series for one contract and date.
Readings are stored as kWh per 30 minutes; --unit kw converts to average
demand (x2) for display only.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showContract, "contract", "", "Contract name (required)")
	showCmd.Flags().StringVar(&showDate, "date", "", "Date, YYYY-MM-DD (required)")
	showCmd.Flags().StringVar(&showUnit, "unit", "kwh", "Display unit: kwh or kw")
	showCmd.MarkFlagRequired("contract")
	showCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if showUnit != "kwh" && showUnit != "kw" {
		return fmt.Errorf("unknown unit: %s (available: kwh, kw)", showUnit)
	}

	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	contract, err := db.GetContractByName(showContract)
	if err != nil {
		return fmt.Errorf("looking up contract: %w", err)
	}

	series, err := db.GetSeries(contract.ID, showDate)
	if err != nil {
		return fmt.Errorf("querying series: %w", err)
	}

	if len(series) == 0 {
		fmt.Printf("No data for %s on %s\n", showContract, showDate)
		return nil
	}

	// Display-time conversion only; stored values stay kWh per 30 min.
	factor := 1.0
	label := "kWh"
	if showUnit == "kw" {
		factor = 2.0
		label = "kW"
	}

	fmt.Printf("%s | %s (30min, %s)\n", showContract, showDate, label)
	fmt.Println("----------------------------------------")
	fmt.Printf("%-10s  %10s\n", "Time", label)
	fmt.Println("----------------------------------------")

	var total float64
	for _, p := range series {
		fmt.Printf("%-10s  %10.2f\n", p.Slot, p.KWh*factor)
		total += p.KWh
	}

	fmt.Println("----------------------------------------")
	fmt.Printf("Total: %.2f kWh (%d slots)\n", total, len(series))

	return nil
}
