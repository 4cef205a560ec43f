package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RxDataLab/go-edinet/api"
	"github.com/RxDataLab/go-edinet/internal/billing"
	"github.com/RxDataLab/go-edinet/internal/insights"
	"github.com/RxDataLab/go-edinet/internal/settings"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resolver := newResolver(false)

		insightSvc, err := newInsightService(ctx, resolver)
		if err != nil {
			return err
		}

		store, err := settings.Open(cfg.Settings.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		deps := api.Deps{
			Resolver:    resolver,
			Insights:    insightSvc,
			Settings:    store,
			Logger:      logger,
			CORSOrigins: cfg.API.CORSOrigins,
		}
		payjp := billing.NewClient(cfg.Billing.PayJPSecretKey, cfg.Billing.PayJPPlanID,
			billing.WithBaseURL(cfg.Billing.BaseURL),
			billing.WithLogger(logger),
		)
		if payjp.Configured() {
			deps.Billing = payjp
		} else {
			logger.Warn("PAY.JP is not configured; /api/payments is disabled")
		}

		return api.NewServer(deps).ListenAndServe(ctx, cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (default from config)")
}

// newInsightService wires Gemini, FMP logos and the resolver. Without a Gemini
// key the service still answers from its cache and reports ErrNoAPIKey.
func newInsightService(ctx context.Context, resolver insights.CompanyResolver) (*insights.Service, error) {
	svcCfg := insights.Config{
		Resolver:    resolver,
		CacheTTL:    cfg.Insights.CacheDuration(),
		Logger:      logger,
		Concurrency: cfg.Insights.Concurrency,
	}
	if logos := insights.NewFMPLogos(cfg.Insights.FMPBaseURL, cfg.Insights.FMPKey, logger); logos != nil {
		svcCfg.Logos = logos
	}
	if cfg.Insights.GeminiKey != "" {
		gen, err := insights.NewGeminiGenerator(ctx, cfg.Insights.GeminiKey, cfg.Insights.Model, cfg.Insights.Temperature)
		if err != nil {
			return nil, fmt.Errorf("failed to set up insights: %w", err)
		}
		svcCfg.Generator = gen
	} else {
		logger.Warn("GEMINI_API_KEY is not set; insights are disabled", zap.String("hint", "set GEMINI_API_KEY"))
	}
	return insights.NewService(svcCfg), nil
}
