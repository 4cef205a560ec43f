package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RxDataLab/go-edinet"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <ticker>...",
	Short: "Resolve representative, address and capital for tickers",
	Example: `  goedinet lookup 7203
  goedinet lookup 7203.T 9984 --format table
  goedinet lookup 7203 --save-original -o toyota.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")
		format, _ := cmd.Flags().GetString("format")
		outputPath, _ := cmd.Flags().GetString("output")
		saveOriginal, _ := cmd.Flags().GetBool("save-original")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runLookup(ctx, args, lookupOptions{
			refresh:      refresh,
			format:       format,
			outputPath:   outputPath,
			saveOriginal: saveOriginal,
			outputDir:    outputDir,
			concurrency:  concurrency,
		})
	},
}

func init() {
	lookupCmd.Flags().Bool("refresh", false, "ignore cached results and refetch")
	lookupCmd.Flags().StringP("format", "f", "json", "output format: json, yaml or table")
	lookupCmd.Flags().StringP("output", "o", "", "write output to this file instead of stdout")
	lookupCmd.Flags().BoolP("save-original", "s", false, "save the downloaded EDINET package")
	lookupCmd.Flags().String("output-dir", "./output", "directory for saved files")
	lookupCmd.Flags().Int("concurrency", edinet.DefaultBatchConcurrency, "tickers resolved in parallel")
}

type lookupOptions struct {
	refresh      bool
	format       string
	outputPath   string
	saveOriginal bool
	outputDir    string
	concurrency  int
}

func runLookup(ctx context.Context, tickers []string, opts lookupOptions) error {
	resolver := newResolver(opts.saveOriginal)

	batch, err := edinet.ResolveBatch(ctx, resolver, tickers, edinet.BatchOptions{
		Concurrency:  opts.concurrency,
		ForceRefresh: opts.refresh,
	})
	if err != nil {
		return err
	}

	reports := make([]edinet.Report, len(batch.Results))
	for i, res := range batch.Results {
		reports[i] = edinet.NewReport(res)
	}
	output, err := formatReports(reports, opts.format)
	if err != nil {
		return err
	}

	if opts.saveOriginal {
		for _, res := range batch.Results {
			if len(res.Archive) == 0 {
				fmt.Fprintf(os.Stderr, "No package downloaded for %s\n", res.Ticker)
				continue
			}
			saved, err := edinet.SaveFiles(res.Archive, nil, edinet.MetadataFor(res), edinet.SaveOptions{
				SaveOriginal: true,
				OutputDir:    opts.outputDir,
			})
			if err != nil {
				return fmt.Errorf("failed to save files: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Saved original package: %s\n", saved.OriginalPath)
		}
	}

	if opts.outputPath != "" {
		saved, err := edinet.SaveFiles(nil, output, &edinet.FilingMetadata{}, edinet.SaveOptions{
			OutputPath: opts.outputPath,
		})
		if err != nil {
			return fmt.Errorf("failed to save files: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved %s output: %s\n", opts.format, saved.OutputPath)
	} else {
		fmt.Print(string(output))
	}

	zap.L().Info("lookup finished",
		zap.Int("tickers", len(batch.Results)),
		zap.Int("resolved", batch.Resolved),
	)
	return nil
}
