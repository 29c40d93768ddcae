// Package gateway provides a client for the payment gateway: token
// acquisition under two auth schemes, customer and wallet creation, and
// payment-collection requests. Responses arrive in more than one envelope
// shape, so ids are pulled out with an ordered list of extraction attempts.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthScheme selects how the client obtains an access token.
type AuthScheme string

const (
	// AuthClientCredentials exchanges a client id/secret at /oauth/token.
	AuthClientCredentials AuthScheme = "client_credentials"
	// AuthPasswordLogin logs in with identity/password at
	// /authentication/login; the response embeds a "Bearer <token>" header
	// value whose scheme prefix must be stripped.
	AuthPasswordLogin AuthScheme = "password_login"
)

// Config holds the gateway connection settings.
type Config struct {
	BaseURL  string
	TenantID string
	Scheme   AuthScheme

	// Client-credentials scheme.
	ClientID     string
	ClientSecret string

	// Password-login scheme.
	Identity string
	Password string
}

// Client is an HTTP client for the payment gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// APIError is a decoded non-2xx gateway response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("gateway returned status %d", e.Status)
}

// Authenticate obtains an access token using the configured scheme.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	switch c.cfg.Scheme {
	case AuthClientCredentials:
		return c.clientCredentialsToken(ctx)
	case AuthPasswordLogin:
		return c.passwordLoginToken(ctx)
	}
	return "", fmt.Errorf("unsupported gateway auth scheme %q", c.cfg.Scheme)
}

func (c *Client) clientCredentialsToken(ctx context.Context) (string, error) {
	body, err := c.doPost(ctx, c.cfg.BaseURL+"/oauth/token", map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	}, "", "")
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}
	return resp.AccessToken, nil
}

func (c *Client) passwordLoginToken(ctx context.Context) (string, error) {
	body, err := c.doPost(ctx, c.cfg.BaseURL+"/authentication/login", map[string]string{
		"identity": c.cfg.Identity,
		"password": c.cfg.Password,
	}, "", "")
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	var resp struct {
		HeaderValue string `json:"headerValue"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(resp.HeaderValue), "Bearer"))
	if token == "" {
		return "", fmt.Errorf("login response contained no bearer token")
	}
	return token, nil
}

// CustomerInput carries the fields of a new gateway customer.
type CustomerInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// CreateCustomer creates an external customer under the tenant and returns
// its id. A 2xx response with no recognizable id is an error.
func (c *Client) CreateCustomer(ctx context.Context, token, idempotencyKey string, in CustomerInput) (string, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/customers", c.cfg.BaseURL, url.PathEscape(c.cfg.TenantID))
	body, err := c.doPost(ctx, endpoint, in, token, idempotencyKey)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	envelope, err := decodeEnvelope(body)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	id, ok := Extract(envelope,
		[]string{"id"},
		[]string{"customerId"},
		[]string{"data", "id"},
		[]string{"data", "customerId"},
	)
	if !ok {
		return "", fmt.Errorf("create customer: gateway response contained no customer id")
	}
	return id, nil
}

// CreateWallet creates a currency-denominated wallet under the customer and
// returns its id.
func (c *Client) CreateWallet(ctx context.Context, token, idempotencyKey, customerID, currency string) (string, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/customers/%s/wallets",
		c.cfg.BaseURL, url.PathEscape(c.cfg.TenantID), url.PathEscape(customerID))
	body, err := c.doPost(ctx, endpoint, map[string]string{
		"currency": currency,
	}, token, idempotencyKey)
	if err != nil {
		return "", fmt.Errorf("create wallet: %w", err)
	}
	envelope, err := decodeEnvelope(body)
	if err != nil {
		return "", fmt.Errorf("create wallet: %w", err)
	}
	id, ok := Extract(envelope,
		[]string{"id"},
		[]string{"walletId"},
		[]string{"data", "id"},
		[]string{"data", "walletId"},
	)
	if !ok {
		return "", fmt.Errorf("create wallet: gateway response contained no wallet id")
	}
	return id, nil
}

// PaymentRequest is the body of a payment-collection request.
type PaymentRequest struct {
	Type                string            `json:"type"`
	Amount              float64           `json:"amount"`
	Currency            string            `json:"currency"`
	DestinationWalletID string            `json:"destinationWalletId"`
	ExternalUniqueID    string            `json:"externalUniqueId"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// CreatePayment submits a payment-collection request. The decoded response is
// returned as a weakly-typed map alongside the raw body, so callers can apply
// their own extraction against the tolerated envelope shapes.
func (c *Client) CreatePayment(ctx context.Context, token string, req PaymentRequest) (map[string]any, []byte, error) {
	endpoint := fmt.Sprintf("%s/tenants/%s/payments", c.cfg.BaseURL, url.PathEscape(c.cfg.TenantID))
	body, err := c.doPost(ctx, endpoint, req, token, "")
	if err != nil {
		return nil, nil, fmt.Errorf("create payment: %w", err)
	}
	envelope, err := decodeEnvelope(body)
	if err != nil {
		return nil, nil, fmt.Errorf("create payment: %w", err)
	}
	return envelope, body, nil
}

func (c *Client) doPost(ctx context.Context, endpoint string, payload any, token, idempotencyKey string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil {
			apiErr.Message = envelope.Message
			if apiErr.Message == "" {
				apiErr.Message = envelope.Error
			}
		}
		c.logger.Warn("gateway returned non-2xx", "status", resp.StatusCode, "endpoint", endpoint)
		return nil, apiErr
	}
	return body, nil
}

func decodeEnvelope(body []byte) (map[string]any, error) {
	envelope := map[string]any{}
	if len(body) == 0 {
		return envelope, nil
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return envelope, nil
}

// Extract walks each candidate path through nested maps in order and returns
// the first non-empty string value found.
func Extract(envelope map[string]any, paths ...[]string) (string, bool) {
	for _, path := range paths {
		var cur any = envelope
		found := true
		for _, key := range path {
			m, ok := cur.(map[string]any)
			if !ok {
				found = false
				break
			}
			cur, ok = m[key]
			if !ok {
				found = false
				break
			}
		}
		if !found {
			continue
		}
		if s, ok := cur.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
