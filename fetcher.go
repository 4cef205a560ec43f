package edinet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	VERSION = "0.1.0"

	// DefaultBaseURL is the EDINET API v2 root
	DefaultBaseURL = "https://api.edinet-fsa.go.jp/api/v2"

	// SubscriptionKeyEnvVar is the environment variable holding the EDINET subscription key
	SubscriptionKeyEnvVar = "EDINET_SUBSCRIPTION_KEY"

	// LegacyAPIKeyEnvVar is consulted when SubscriptionKeyEnvVar is unset
	LegacyAPIKeyEnvVar = "EDINET_API_KEY"

	// DefaultRequestsPerSecond throttles outbound EDINET calls
	DefaultRequestsPerSecond = 5

	// DefaultTimeout bounds a single EDINET HTTP round trip
	DefaultTimeout = 30 * time.Second

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
)

// StatusError is returned when EDINET answers with a non-2xx status
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("EDINET returned status %d for %s", e.StatusCode, e.URL)
}

// GetSubscriptionKey reads the EDINET subscription key from the environment.
// An empty result is allowed; requests are then sent without the key header.
func GetSubscriptionKey() string {
	if key := os.Getenv(SubscriptionKeyEnvVar); key != "" {
		return key
	}
	return os.Getenv(LegacyAPIKeyEnvVar)
}

// BuildUserAgent creates the User-Agent string sent with every EDINET request
func BuildUserAgent(contact string) string {
	if contact == "" {
		return fmt.Sprintf("go-edinet/%s", VERSION)
	}
	return fmt.Sprintf("go-edinet/%s (%s)", VERSION, contact)
}

// HTTPDoer performs HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the EDINET document list and document download endpoints
type Client struct {
	baseURL         string
	subscriptionKey string
	userAgent       string
	httpClient      HTTPDoer
	limiter         *rate.Limiter

	requests atomic.Int64
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root (tests use httptest servers)
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithSubscriptionKey sets the Ocp-Apim-Subscription-Key header value
func WithSubscriptionKey(key string) ClientOption {
	return func(c *Client) { c.subscriptionKey = key }
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(doer HTTPDoer) ClientOption {
	return func(c *Client) { c.httpClient = doer }
}

// WithRateLimit throttles requests to rps per second. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates an EDINET client. Without options it targets the public
// API, reads the subscription key from the environment and throttles to
// DefaultRequestsPerSecond.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		subscriptionKey: GetSubscriptionKey(),
		userAgent:       BuildUserAgent(""),
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		limiter:         rate.NewLimiter(DefaultRequestsPerSecond, DefaultRequestsPerSecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Requests returns how many HTTP requests this client has issued
func (c *Client) Requests() int64 {
	return c.requests.Load()
}

// FetchDocumentList fetches the full filing index for one calendar date (YYYY-MM-DD)
func (c *Client) FetchDocumentList(ctx context.Context, date string) ([]DocumentMeta, error) {
	params := url.Values{}
	params.Set("type", "2")
	params.Set("date", date)

	body, err := c.get(ctx, c.baseURL+"/documents.json?"+params.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EDINET documents for %s: %w", date, err)
	}

	docs, err := ParseDocumentList(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EDINET documents for %s: %w", date, err)
	}
	return docs, nil
}

// DownloadDocument downloads the ZIP package (type=1) holding a filing's source documents
func (c *Client) DownloadDocument(ctx context.Context, docID string) ([]byte, error) {
	if docID == "" {
		return nil, fmt.Errorf("document ID is required")
	}

	params := url.Values{}
	params.Set("type", "1")

	body, err := c.get(ctx, c.baseURL+"/documents/"+url.PathEscape(docID)+"?"+params.Encode(), "application/zip")
	if err != nil {
		return nil, fmt.Errorf("failed to download EDINET document %s: %w", docID, err)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	if c.subscriptionKey != "" {
		req.Header.Set(subscriptionKeyHeader, c.subscriptionKey)
	}

	c.requests.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.Redacted()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
