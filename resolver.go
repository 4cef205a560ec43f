package edinet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// tickerDigitsPattern extracts the securities code from tickers like "7203" or "7203.T"
var tickerDigitsPattern = regexp.MustCompile(`^(\d{4})`)

// ErrInvalidTicker means the ticker has no leading 4-digit securities code
var ErrInvalidTicker = errors.New("ticker has no 4-digit securities code")

// ErrNoFiling means no security report was filed for the ticker inside the search window
var ErrNoFiling = errors.New("no filing found in search window")

// Stage names the pipeline step a resolution ended at
type Stage string

const (
	StageCache    Stage = "cache"
	StageTicker   Stage = "ticker"
	StageLocate   Stage = "locate"
	StageDownload Stage = "download"
	StageArchive  Stage = "archive"
	StageParse    Stage = "parse"
	StageExtract  Stage = "extract"
	StageDone     Stage = "done"
)

// ArchiveDownloader downloads a filing package. *Client satisfies it.
type ArchiveDownloader interface {
	DownloadDocument(ctx context.Context, docID string) ([]byte, error)
}

// FilingSource is everything the resolver needs from EDINET
type FilingSource interface {
	DocumentLister
	ArchiveDownloader
}

// Resolution is the detailed outcome of resolving one ticker.
// Info is nil when nothing usable was found; Err says why.
type Resolution struct {
	Ticker   string
	Info     *CompanyInfo
	Stage    Stage
	Err      error
	Cached   bool
	Document *DocumentMeta // nil when served from cache or no filing was found
	Entry    string        // archive entry that was parsed
	Archive  []byte        // raw package, kept only when WithKeepArchive is set
}

// ResolverStats counts resolver activity since creation
type ResolverStats struct {
	Lookups       int64 `json:"lookups"`
	CacheHits     int64 `json:"cacheHits"`
	Downloads     int64 `json:"downloads"`
	Resolved      int64 `json:"resolved"`
	NotFound      int64 `json:"notFound"`
	CachedTickers int   `json:"cachedTickers"`
}

type resolverOptions struct {
	logger       *zap.Logger
	clock        Clock
	windowDays   int
	infoTTL      time.Duration
	docListTTL   time.Duration
	keepArchive  bool
	infoCache    *Cache[*CompanyInfo]
	docListCache *Cache[[]DocumentMeta]
}

// ResolverOption configures a Resolver
type ResolverOption func(*resolverOptions)

// WithLogger sets the logger; the default discards everything
func WithLogger(l *zap.Logger) ResolverOption {
	return func(o *resolverOptions) { o.logger = l }
}

// WithClock replaces time.Now for cache freshness and the locator's "today"
func WithClock(c Clock) ResolverOption {
	return func(o *resolverOptions) { o.clock = c }
}

// WithSearchWindow sets how many days back the locator scans
func WithSearchWindow(days int) ResolverOption {
	return func(o *resolverOptions) { o.windowDays = days }
}

// WithCacheTTL overrides the company info and filing index TTLs
func WithCacheTTL(info, documentList time.Duration) ResolverOption {
	return func(o *resolverOptions) {
		o.infoTTL = info
		o.docListTTL = documentList
	}
}

// WithCaches shares existing caches with the resolver
func WithCaches(info *Cache[*CompanyInfo], documentList *Cache[[]DocumentMeta]) ResolverOption {
	return func(o *resolverOptions) {
		o.infoCache = info
		o.docListCache = documentList
	}
}

// WithKeepArchive keeps downloaded packages on the Resolution
func WithKeepArchive(keep bool) ResolverOption {
	return func(o *resolverOptions) { o.keepArchive = keep }
}

// Resolver turns tickers into company profiles read from their latest filing.
// Every outcome, including "not found", is cached per ticker.
type Resolver struct {
	source      FilingSource
	locator     *Locator
	cache       *Cache[*CompanyInfo]
	log         *zap.Logger
	keepArchive bool

	lookups   atomic.Int64
	cacheHits atomic.Int64
	downloads atomic.Int64
	resolved  atomic.Int64
	notFound  atomic.Int64
}

// NewResolver creates a Resolver backed by source
func NewResolver(source FilingSource, opts ...ResolverOption) *Resolver {
	o := resolverOptions{
		clock:      time.Now,
		windowDays: DefaultSearchWindowDays,
		infoTTL:    CompanyInfoTTL,
		docListTTL: DocumentListTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.infoCache == nil {
		o.infoCache = NewCache[*CompanyInfo](o.infoTTL, o.clock)
	}
	if o.docListCache == nil {
		o.docListCache = NewCache[[]DocumentMeta](o.docListTTL, o.clock)
	}

	return &Resolver{
		source: source,
		locator: NewLocator(source, LocatorConfig{
			WindowDays: o.windowDays,
			Cache:      o.docListCache,
			Clock:      o.clock,
			Logger:     o.logger,
		}),
		cache:       o.infoCache,
		log:         o.logger,
		keepArchive: o.keepArchive,
	}
}

// NormalizeTicker trims and upper-cases a ticker
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// TickerDigits returns the leading 4-digit securities code of a ticker
func TickerDigits(ticker string) (string, bool) {
	m := tickerDigitsPattern.FindStringSubmatch(NormalizeTicker(ticker))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolve returns the company profile for ticker, or nil when it cannot be
// determined. Failures are logged, never returned.
func (r *Resolver) Resolve(ctx context.Context, ticker string, forceRefresh bool) *CompanyInfo {
	return r.ResolveDetailed(ctx, ticker, forceRefresh).Info
}

// ResolveDetailed is Resolve with the stage, error and filing behind the result
func (r *Resolver) ResolveDetailed(ctx context.Context, ticker string, forceRefresh bool) Resolution {
	if ticker == "" {
		return Resolution{Stage: StageTicker, Err: ErrInvalidTicker}
	}

	normalized := NormalizeTicker(ticker)
	r.lookups.Add(1)

	if forceRefresh {
		r.cache.Evict(normalized)
	} else if info, ok := r.cache.Get(normalized); ok {
		r.cacheHits.Add(1)
		return Resolution{Ticker: normalized, Info: info, Stage: StageCache, Cached: true}
	}

	res := r.run(ctx, normalized, forceRefresh)
	res.Ticker = normalized
	r.report(res)

	// A cancelled caller says nothing about the ticker; do not remember it.
	if ctx.Err() != nil && res.Info == nil {
		return res
	}
	r.cache.Set(normalized, res.Info)
	return res
}

// run executes the uncached pipeline. Each return names the stage it stopped at.
func (r *Resolver) run(ctx context.Context, ticker string, forceRefresh bool) Resolution {
	digits, ok := TickerDigits(ticker)
	if !ok {
		return Resolution{Stage: StageTicker, Err: ErrInvalidTicker}
	}

	doc, err := r.locator.Locate(ctx, digits, forceRefresh)
	if err != nil {
		return Resolution{Stage: StageLocate, Err: fmt.Errorf("failed to locate EDINET document: %w", err)}
	}
	if doc == nil {
		return Resolution{Stage: StageLocate, Err: ErrNoFiling}
	}
	r.log.Info("using EDINET document",
		zap.String("ticker", ticker),
		zap.String("doc_id", doc.DocID),
		zap.String("doc_type", doc.DocTypeCode),
		zap.String("submitted", doc.SubmitDateTime))

	res := Resolution{Document: doc}

	r.downloads.Add(1)
	data, err := r.source.DownloadDocument(ctx, doc.DocID)
	if err != nil {
		res.Stage, res.Err = StageDownload, err
		return res
	}
	if r.keepArchive {
		res.Archive = data
	}

	zr, err := OpenArchive(data)
	if err != nil {
		res.Stage, res.Err = StageArchive, err
		return res
	}
	entry, err := SelectEntry(zr)
	if err != nil {
		res.Stage, res.Err = StageArchive, err
		return res
	}
	res.Entry = entry.Name
	r.log.Info("parsing XBRL entry", zap.String("ticker", ticker), zap.String("entry", entry.Name))

	content, err := ReadEntry(entry)
	if err != nil {
		res.Stage, res.Err = StageArchive, err
		return res
	}
	tree, err := ParseTree(content)
	if err != nil {
		res.Stage, res.Err = StageParse, fmt.Errorf("failed to parse %s: %w", entry.Name, err)
		return res
	}

	res.Info = ExtractCompanyInfo(tree)
	if res.Info == nil {
		res.Stage = StageExtract
		return res
	}
	res.Stage = StageDone
	return res
}

func (r *Resolver) report(res Resolution) {
	fields := []zap.Field{zap.String("ticker", res.Ticker), zap.String("stage", string(res.Stage))}
	if res.Document != nil {
		fields = append(fields, zap.String("doc_id", res.Document.DocID))
	}

	switch {
	case res.Info != nil:
		r.resolved.Add(1)
		r.log.Info("extracted company info", append(fields,
			zap.String("representative", valueOr(res.Info.RepresentativeName, "N/A")),
			zap.String("address", valueOr(res.Info.HeadOfficeAddress, "N/A")))...)
	case res.Stage == StageParse:
		r.notFound.Add(1)
		r.log.Error("failed to parse EDINET XBRL", append(fields, zap.Error(res.Err))...)
	case res.Err != nil:
		r.notFound.Add(1)
		r.log.Warn("no company info", append(fields, zap.Error(res.Err))...)
	default:
		r.notFound.Add(1)
		r.log.Warn("no structured info found inside document", fields...)
	}
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// Stats returns activity counters
func (r *Resolver) Stats() ResolverStats {
	return ResolverStats{
		Lookups:       r.lookups.Load(),
		CacheHits:     r.cacheHits.Load(),
		Downloads:     r.downloads.Load(),
		Resolved:      r.resolved.Load(),
		NotFound:      r.notFound.Load(),
		CachedTickers: r.cache.Len(),
	}
}

// CachedAt reports when the ticker's cached result was stored
func (r *Resolver) CachedAt(ticker string) (time.Time, bool) {
	return r.cache.Timestamp(NormalizeTicker(ticker))
}
