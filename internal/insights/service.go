package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RxDataLab/go-edinet"
)

var (
	ErrTickerRequired = errors.New("ticker is required")
	ErrNoAPIKey       = errors.New("gemini API key is not configured")
)

const (
	// CacheTTL is how long a generated insight is served before regenerating
	CacheTTL = 6 * time.Hour

	DefaultCompareConcurrency = 3
)

// CompanyResolver supplies filing-backed company facts. *edinet.Resolver satisfies it.
type CompanyResolver interface {
	Resolve(ctx context.Context, ticker string, forceRefresh bool) *edinet.CompanyInfo
}

// Config wires a Service. Generator, Resolver and Logos are optional.
type Config struct {
	Generator   Generator
	Resolver    CompanyResolver
	Logos       LogoSource
	CacheTTL    time.Duration
	Clock       edinet.Clock
	Logger      *zap.Logger
	Concurrency int
}

// Service generates, enriches and caches insights
type Service struct {
	generator   Generator
	resolver    CompanyResolver
	logos       LogoSource
	cache       *edinet.Cache[*Insight]
	logger      *zap.Logger
	concurrency int
}

func NewService(cfg Config) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = CacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultCompareConcurrency
	}
	s := &Service{
		generator:   cfg.Generator,
		resolver:    cfg.Resolver,
		cache:       edinet.NewCache[*Insight](ttl, cfg.Clock),
		logger:      logger,
		concurrency: concurrency,
	}
	// keep a typed-nil *FMPLogos from becoming a non-nil interface
	if l, ok := cfg.Logos.(*FMPLogos); !ok || l != nil {
		s.logos = cfg.Logos
	}
	return s
}

// Get returns the insight for ticker, generating it when not cached or when force is set
func (s *Service) Get(ctx context.Context, ticker string, force bool) (*Insight, error) {
	ticker = edinet.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	if !force {
		if cached, ok := s.cache.Get(ticker); ok {
			return cached, nil
		}
	}
	if s.generator == nil {
		return nil, ErrNoAPIKey
	}

	var (
		text string
		info *edinet.CompanyInfo
		logo string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		text, err = s.generator.Generate(gctx, BuildPrompt(ticker))
		return err
	})
	if s.resolver != nil {
		g.Go(func() error {
			info = s.resolver.Resolve(gctx, ticker, force)
			return nil
		})
	}
	if s.logos != nil {
		g.Go(func() error {
			logo = s.logos.Logo(gctx, ticker)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("AI analysis error", zap.String("ticker", ticker), zap.Error(err))
		return nil, fmt.Errorf("analysis for %s: %w", ticker, err)
	}

	insight, err := ParseInsight(text)
	if err != nil {
		s.logger.Error("AI analysis error", zap.String("ticker", ticker), zap.Error(err))
		return nil, err
	}
	if insight.Ticker == "" {
		insight.Ticker = ticker
	}
	insight.Logo = logo
	insight.applyCompanyInfo(info)

	s.cache.Set(ticker, insight)
	s.logger.Info("generated insight",
		zap.String("ticker", ticker),
		zap.Int("score", insight.Score),
		zap.Bool("edinet", info != nil),
	)
	return insight, nil
}

// CompareResult is one ticker's outcome in a comparison
type CompareResult struct {
	Ticker  string   `json:"ticker"`
	Insight *Insight `json:"insight,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Compare fetches insights for several tickers concurrently. Results follow
// input order; per-ticker failures are reported in CompareResult.Error.
func (s *Service) Compare(ctx context.Context, tickers []string) ([]CompareResult, error) {
	if len(tickers) == 0 {
		return nil, ErrTickerRequired
	}
	results := make([]CompareResult, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ticker := range tickers {
		results[i].Ticker = edinet.NormalizeTicker(ticker)
		g.Go(func() error {
			insight, err := s.Get(gctx, ticker, false)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Insight = insight
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("compare cancelled: %w", err)
	}
	return results, nil
}
