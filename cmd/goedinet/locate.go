package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/RxDataLab/go-edinet"
)

var locateCmd = &cobra.Command{
	Use:   "locate <ticker>",
	Short: "Print the latest security report filed for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		digits, ok := edinet.TickerDigits(args[0])
		if !ok {
			return fmt.Errorf("%q: %w", args[0], edinet.ErrInvalidTicker)
		}
		window, _ := cmd.Flags().GetInt("days")
		if window <= 0 {
			window = cfg.EDINET.SearchWindowDays
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		loc := edinet.NewLocator(newClient(), edinet.LocatorConfig{
			WindowDays: window,
			Logger:     logger,
		})
		fmt.Fprintf(os.Stderr, "Scanning %d days of EDINET filings for %s...\n", window, digits)
		doc, err := loc.Locate(ctx, digits, false)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%s: %w", digits, edinet.ErrNoFiling)
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	locateCmd.Flags().Int("days", 0, "search window in days (default from config)")
}
