package edinet

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSearchWindowDays is how many calendar days back the locator scans
const DefaultSearchWindowDays = 180

// DocumentLister fetches one day's filing index. *Client satisfies it.
type DocumentLister interface {
	FetchDocumentList(ctx context.Context, date string) ([]DocumentMeta, error)
}

// LocatorConfig configures a Locator. Zero values select the defaults.
type LocatorConfig struct {
	WindowDays int
	Cache      *Cache[[]DocumentMeta] // keyed by YYYY-MM-DD
	Clock      Clock
	Logger     *zap.Logger
}

// Locator finds the most recent security report filed for a ticker
type Locator struct {
	lister DocumentLister
	cache  *Cache[[]DocumentMeta]
	window int
	now    Clock
	log    *zap.Logger
}

// NewLocator creates a Locator reading daily indexes through lister
func NewLocator(lister DocumentLister, cfg LocatorConfig) *Locator {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultSearchWindowDays
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache[[]DocumentMeta](DocumentListTTL, cfg.Clock)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Locator{
		lister: lister,
		cache:  cfg.Cache,
		window: cfg.WindowDays,
		now:    cfg.Clock,
		log:    cfg.Logger,
	}
}

// Locate scans the window newest-first and returns the latest matching filing
// on the first date that has one. It returns nil, nil when nothing in the
// window matches. A date whose index cannot be fetched is logged and skipped.
// forceRefresh refetches the index of every date it visits.
func (l *Locator) Locate(ctx context.Context, tickerDigits string, forceRefresh bool) (*DocumentMeta, error) {
	today := l.now()
	for offset := 0; offset < l.window; offset++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		date := today.AddDate(0, 0, -offset).UTC().Format("2006-01-02")
		docs, err := l.documentsFor(ctx, date, forceRefresh)
		if err != nil {
			l.log.Warn("failed to query EDINET documents", zap.String("date", date), zap.Error(err))
			continue
		}

		if doc, ok := LatestSubmitted(FilterForTicker(docs, tickerDigits)); ok {
			return &doc, nil
		}
	}
	return nil, nil
}

// documentsFor returns the cached index for date, fetching it when missing or stale
func (l *Locator) documentsFor(ctx context.Context, date string, forceRefresh bool) ([]DocumentMeta, error) {
	if forceRefresh {
		l.cache.Evict(date)
	} else if docs, ok := l.cache.Get(date); ok {
		return docs, nil
	}

	docs, err := l.lister.FetchDocumentList(ctx, date)
	if err != nil {
		return nil, err
	}
	l.cache.Set(date, docs)
	return docs, nil
}
