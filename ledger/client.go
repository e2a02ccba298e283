// Package ledger is the typed HTTP client for the remote ledger service: it
// obtains sessions, binds palm codes to profiles, and submits top-ups and
// orders authorized by a palm code.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HeaderPalmCode carries a palm code as an alternate authorization
// credential; endpoints accept it interchangeably with the body field.
const HeaderPalmCode = "x-palm-code"

const defaultTimeout = 10 * time.Second

// Client is a session-holding HTTP client for the ledger service.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken seeds an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient constructs a client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token attached to authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login obtains a session; the returned token is retained for subsequent
// calls.
func (c *Client) Login(ctx context.Context, phone, password string) (*AuthResponse, error) {
	body := map[string]string{"phone": phone, "password": password}
	var resp AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", body, nil, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Register creates a profile and retains the returned session token.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", params, nil, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, http.MethodGet, "/users/profile", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyPalm binds (or replaces) a palm code on the profile.
func (c *Client) VerifyPalm(ctx context.Context, palmCode string) (*VerifyPalmResult, error) {
	body := map[string]string{"plam_code": palmCode}
	var resp VerifyPalmResult
	if err := c.call(ctx, http.MethodPost, "/users/verify-palm", body, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Topup increases the balance. A non-empty palmCode travels in the
// x-palm-code header as the authorization credential.
func (c *Client) Topup(ctx context.Context, amount int64, palmCode string) (*TopupResult, error) {
	body := map[string]int64{"amount": amount}
	var resp TopupResult
	if err := c.call(ctx, http.MethodPost, "/users/topup", body, palmHeader(palmCode), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateOrder submits a purchase authorized by the palm code.
func (c *Client) CreateOrder(ctx context.Context, params OrderParams, palmCode string) (*OrderResult, error) {
	var resp OrderResult
	if err := c.call(ctx, http.MethodPost, "/orders", params, palmHeader(palmCode), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OrderHistory lists past purchases.
func (c *Client) OrderHistory(ctx context.Context) (*HistoryResult, error) {
	var resp HistoryResult
	if err := c.call(ctx, http.MethodGet, "/transactions/order-history", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TopupHistory lists past top-ups.
func (c *Client) TopupHistory(ctx context.Context) (*HistoryResult, error) {
	var resp HistoryResult
	if err := c.call(ctx, http.MethodGet, "/transactions/topup-history", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Products fetches the store catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var resp []Product
	if err := c.call(ctx, http.MethodGet, "/products", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func palmHeader(palmCode string) map[string]string {
	if strings.TrimSpace(palmCode) == "" {
		return nil
	}
	return map[string]string{HeaderPalmCode: palmCode}
}

// apiError is the loosely shaped failure body the ledger returns.
type apiError struct {
	Error          string `json:"error"`
	CurrentBalance int64  `json:"currentBalance,omitempty"`
	RequiredAmount int64  `json:"requiredAmount,omitempty"`
}

func (c *Client) call(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload apiError
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr != nil || payload.Error == "" {
			return &RejectionError{
				Status:  resp.StatusCode,
				Reason:  RejectGeneric,
				Message: fmt.Sprintf("ledger %s failed with status %d", path, resp.StatusCode),
			}
		}
		return &RejectionError{
			Status:         resp.StatusCode,
			Reason:         classifyReason(payload.Error),
			Message:        payload.Error,
			CurrentBalance: payload.CurrentBalance,
			RequiredAmount: payload.RequiredAmount,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
