// Package billing creates PAY.JP subscriptions for paid plans.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.pay.jp"
	DefaultPlan    = "pro"
)

var (
	ErrTokenRequired = errors.New("tokenId is required")
	ErrNotConfigured = errors.New("PAY.JP is not configured")
)

// APIError is a non-2xx response from PAY.JP
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// SubscribeRequest is what the checkout form posts
type SubscribeRequest struct {
	TokenID string `json:"tokenId"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Plan    string `json:"plan"`
	UID     string `json:"uid"`
}

// Subscription summarises the created customer and subscription
type Subscription struct {
	Status             string `json:"status"`
	SubscriptionID     string `json:"subscriptionId"`
	SubscriptionStatus string `json:"subscriptionStatus"`
	CustomerID         string `json:"customerId"`
}

// Client talks to the PAY.JP REST API
type Client struct {
	baseURL    string
	secretKey  string
	planID     string
	httpClient *http.Client
	logger     *zap.Logger
	newKey     func() string
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client. Subscribe fails with ErrNotConfigured while
// secretKey or planID is empty.
func NewClient(secretKey, planID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		secretKey:  secretKey,
		planID:     planID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
		newKey:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the secret key and plan are set
func (c *Client) Configured() bool {
	return c.secretKey != "" && c.planID != ""
}

// Subscribe registers the card token as a customer and subscribes it to the configured plan
func (c *Client) Subscribe(ctx context.Context, req SubscribeRequest) (*Subscription, error) {
	if req.TokenID == "" {
		return nil, ErrTokenRequired
	}
	if c.secretKey == "" {
		return nil, fmt.Errorf("%w: secret key missing", ErrNotConfigured)
	}
	if c.planID == "" {
		return nil, fmt.Errorf("%w: PAYJP_PLAN_ID missing", ErrNotConfigured)
	}
	plan := req.Plan
	if plan == "" {
		plan = DefaultPlan
	}

	var customer struct {
		ID string `json:"id"`
	}
	err := c.post(ctx, "/v1/customers", url.Values{
		"card":        {req.TokenID},
		"email":       {req.Email},
		"description": {req.Name},
	}, &customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	metadata, err := json.Marshal(map[string]string{"plan": plan, "uid": req.UID, "email": req.Email})
	if err != nil {
		return nil, err
	}
	var subscription struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	err = c.post(ctx, "/v1/subscriptions", url.Values{
		"customer": {customer.ID},
		"plan":     {c.planID},
		"metadata": {string(metadata)},
	}, &subscription)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}

	c.logger.Info("created subscription",
		zap.String("customer_id", customer.ID),
		zap.String("subscription_id", subscription.ID),
		zap.String("plan", plan),
	)
	return &Subscription{
		Status:             "ok",
		SubscriptionID:     subscription.ID,
		SubscriptionStatus: subscription.Status,
		CustomerID:         customer.ID,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", c.newKey())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp, body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// errorMessage prefers PAY.JP's error.message and falls back to the status text
func errorMessage(resp *http.Response, body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
