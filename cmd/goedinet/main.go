// goedinet looks up company facts from EDINET filings and serves them,
// together with AI insights, over HTTP.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RxDataLab/go-edinet"
	"github.com/RxDataLab/go-edinet/internal/config"
	"github.com/RxDataLab/go-edinet/internal/logging"
)

// Build-time variables (set via -ldflags).
var (
	commit = "unknown"
	date   = "unknown"
)

var (
	cfg    *config.Config
	logger *zap.Logger
	flush  func()
)

func main() {
	err := rootCmd.Execute()
	if flush != nil {
		flush()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "goedinet",
	Short:         "Company facts from EDINET security reports",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `goedinet finds the latest annual, semiannual or quarterly security report
a listed Japanese company filed on EDINET and extracts its representative,
head office address and capital stock.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return err
		}
		flush = logging.Install(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("goedinet %s\n", edinet.VERSION)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which API keys are configured",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range config.CheckAPIKeys(cfg) {
			state := "not set"
			if k.IsSet {
				state = fmt.Sprintf("%s (%s)", k.Masked, k.Source)
			}
			fmt.Printf("%-24s %s\n", k.Name, state)
		}
	},
}

// newClient builds the EDINET client from config
func newClient() *edinet.Client {
	opts := []edinet.ClientOption{
		edinet.WithBaseURL(cfg.EDINET.BaseURL),
		edinet.WithUserAgent(edinet.BuildUserAgent(cfg.EDINET.Contact)),
		edinet.WithRateLimit(cfg.EDINET.RateLimit, max(1, int(cfg.EDINET.RateLimit))),
		edinet.WithHTTPClient(&http.Client{Timeout: cfg.EDINET.TimeoutDuration()}),
	}
	if cfg.EDINET.SubscriptionKey != "" {
		opts = append(opts, edinet.WithSubscriptionKey(cfg.EDINET.SubscriptionKey))
	}
	return edinet.NewClient(opts...)
}

// newResolver builds a resolver over newClient
func newResolver(keepArchive bool) *edinet.Resolver {
	ttl := cfg.EDINET.CacheDuration()
	return edinet.NewResolver(newClient(),
		edinet.WithLogger(logger),
		edinet.WithSearchWindow(cfg.EDINET.SearchWindowDays),
		edinet.WithCacheTTL(ttl, ttl),
		edinet.WithKeepArchive(keepArchive),
	)
}
