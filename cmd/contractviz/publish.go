package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkondo/contractviz/internal/publisher"
)

var (
	publishContract string
	publishDate     string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a day's series to MQTT",
	Long: `Reads one contract's stored half-hour series for a date and publishes
it to the configured MQTT broker as a retained JSON message.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishContract, "contract", "", "Contract name (required)")
	publishCmd.Flags().StringVar(&publishDate, "date", "", "Date, YYYY-MM-DD (required)")
	publishCmd.MarkFlagRequired("contract")
	publishCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Create publisher
	pub, err := publisher.New(cfg.MQTT, cfg.GetTopicPrefix())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	// Open database
	db, err := openStore()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	contract, err := db.GetContractByName(publishContract)
	if err != nil {
		return fmt.Errorf("looking up contract: %w", err)
	}

	series, err := db.GetSeries(contract.ID, publishDate)
	if err != nil {
		return fmt.Errorf("querying series: %w", err)
	}

	if len(series) == 0 {
		fmt.Printf("No data for %s on %s, nothing published\n", publishContract, publishDate)
		return nil
	}

	if err := pub.PublishSeries(contract.Name, publishDate, series); err != nil {
		return fmt.Errorf("publishing series: %w", err)
	}

	fmt.Printf("✓ Published %d slots for %s %s\n", len(series), publishContract, publishDate)
	return nil
}
