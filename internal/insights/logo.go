package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultFMPBaseURL is the Financial Modeling Prep v3 API root
const DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"

// LogoSource returns a logo URL for a ticker, or "" when none is known
type LogoSource interface {
	Logo(ctx context.Context, ticker string) string
}

// FMPLogos looks up company logos through the FMP profile endpoint
type FMPLogos struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewFMPLogos returns nil when apiKey is empty
func NewFMPLogos(baseURL, apiKey string, logger *zap.Logger) *FMPLogos {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultFMPBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FMPLogos{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Logger:     logger,
	}
}

// SymbolVariations lists the symbols tried for ticker, in order.
// "9831.T" yields 9831.T, 9831, T:9831, t:9831.
func SymbolVariations(ticker string) []string {
	variations := []string{ticker}
	prefix, suffix, found := strings.Cut(ticker, ".")
	if !found {
		return variations
	}
	if prefix != "" {
		variations = append(variations, prefix)
	}
	// only the first segment after the dot counts as the exchange
	suffix, _, _ = strings.Cut(suffix, ".")
	if prefix != "" && suffix != "" {
		variations = append(variations,
			strings.ToUpper(suffix)+":"+prefix,
			strings.ToLower(suffix)+":"+prefix,
		)
	}
	return variations
}

// Logo tries each symbol variation and returns the first http(s) image
func (f *FMPLogos) Logo(ctx context.Context, ticker string) string {
	for _, symbol := range SymbolVariations(ticker) {
		logo, err := f.profileImage(ctx, symbol)
		if err != nil {
			if ctx.Err() != nil {
				return ""
			}
			f.Logger.Warn("FMP logo fetch error", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if strings.HasPrefix(logo, "http") {
			return logo
		}
	}
	return ""
}

type fmpProfile struct {
	Image any `json:"image"`
}

func (f *FMPLogos) profileImage(ctx context.Context, symbol string) (string, error) {
	endpoint := f.BaseURL + "/profile/" + url.PathEscape(symbol) + "?apikey=" + url.QueryEscape(f.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var profiles []fmpProfile
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		// a non-array body means no profile
		return "", nil
	}
	if len(profiles) == 0 {
		return "", nil
	}
	image, _ := profiles[0].Image.(string)
	return image, nil
}
