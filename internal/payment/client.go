// Package payment is the client for the hosted-checkout payment gateway.
// The gateway is an external collaborator: this package only creates
// checkout sessions and verifies webhook signatures; the success/failure
// outcome arrives asynchronously keyed by the booking id placed in the
// session metadata.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/showza/showza-server/internal/utils"
)

// Terminal gateway failures.  Unavailable covers network errors and 5xx
// responses; Rejected covers 4xx responses (bad key, bad params) that a
// retry cannot fix.
var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")
)

// minSessionTTL is the shortest expiry the gateway accepts.  The booking
// hold window is usually shorter; it stays authoritative for seat release,
// the session expiry is merely clamped up to this floor.
const minSessionTTL = 30 * time.Minute

const defaultBaseURL = "https://api.stripe.com/v1"

// Client creates hosted checkout sessions.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the gateway base URL (used by tests).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// New constructs a gateway Client.
func New(secretKey string, opts ...Option) *Client {
	c := &Client{
		secretKey: secretKey,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckoutParams describes one hosted checkout session.
type CheckoutParams struct {
	AmountCents int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	BookingID   string
	ExpiresAt   time.Time
}

// Session is the created checkout session: the hosted URL the caller is
// redirected to, keyed by the gateway's session id.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession creates a session for one line item covering the
// whole booking amount.  The booking id travels in the session metadata and
// comes back in the completion webhook.  ExpiresAt below the gateway's
// 30-minute floor is clamped up; seat release still happens at the hold
// window regardless.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error) {
	expiresAt := p.ExpiresAt
	if floor := time.Now().Add(minSessionTTL); expiresAt.Before(floor) {
		expiresAt = floor
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("line_items[0][price_data][currency]", p.Currency)
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("metadata[bookingId]", p.BookingID)
	form.Set("expires_at", strconv.FormatInt(expiresAt.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var s Session
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		return &s, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}
}

// WebhookEvent is the completion callback body.  Only session-completed
// events carry a booking reference.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				BookingID string `json:"bookingId"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// VerifySignature checks the webhook body against its HMAC-SHA256 hex
// signature.
func VerifySignature(secret string, body []byte, signature string) bool {
	return utils.VerifyHMACSignature(secret, body, signature)
}

// ParseWebhook decodes one webhook event body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	return &ev, nil
}
