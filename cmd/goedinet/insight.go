package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var insightCmd = &cobra.Command{
	Use:   "insight <ticker>...",
	Short: "Generate AI insights enriched with EDINET company facts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		svc, err := newInsightService(ctx, newResolver(false))
		if err != nil {
			return err
		}

		var out any
		if len(args) == 1 {
			out, err = svc.Get(ctx, args[0], false)
		} else {
			out, err = svc.Compare(ctx, args)
		}
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}
