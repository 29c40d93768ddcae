// Package identity provides a client for the identity provider's admin API,
// which creates login identities and assigns them to role groups.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrUserExists is returned when the provider reports the requested username
// as already taken. Callers must treat it as fatal: a fresh identity record
// must never be forged with an old subject id.
var ErrUserExists = errors.New("identity username already exists")

// CreateUserInput carries the fields of a new login identity.
type CreateUserInput struct {
	Username          string            `json:"username"`
	TemporaryPassword string            `json:"temporaryPassword"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	SuppressWelcome   bool              `json:"suppressWelcomeMessage"`
}

// CreatedUser is the provider's view of a newly created identity.
type CreatedUser struct {
	Username  string `json:"username"`
	SubjectID string `json:"subjectId"`
}

// Provider is the subset of the identity provider this workflow depends on.
type Provider interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*CreatedUser, error)
	AddUserToGroup(ctx context.Context, group, username string) error
}

// Client is an HTTP client for the identity provider's admin API.
type Client struct {
	BaseURL    string
	APIKey     string
	PoolID     string
	HTTPClient *http.Client

	logger *slog.Logger
}

// NewClient creates an identity admin client scoped to a user pool.
func NewClient(baseURL, apiKey, poolID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		PoolID:  poolID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// CreateUser registers a new login identity and returns the provider-issued
// subject id. A duplicate username maps to ErrUserExists.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*CreatedUser, error) {
	endpoint := fmt.Sprintf("%s/admin/pools/%s/users", c.BaseURL, url.PathEscape(c.PoolID))
	body, status, err := c.post(ctx, endpoint, in)
	if err != nil {
		return nil, err
	}
	if status == http.StatusConflict {
		return nil, fmt.Errorf("create user %q: %w", in.Username, ErrUserExists)
	}
	if status < 200 || status >= 300 {
		return nil, apiError("create user", status, body)
	}
	var created CreatedUser
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("decode create-user response: %w", err)
	}
	if created.SubjectID == "" {
		return nil, fmt.Errorf("create user %q: provider returned no subject id", in.Username)
	}
	if created.Username == "" {
		created.Username = in.Username
	}
	return &created, nil
}

// AddUserToGroup assigns an existing identity to a role group.
func (c *Client) AddUserToGroup(ctx context.Context, group, username string) error {
	endpoint := fmt.Sprintf("%s/admin/pools/%s/groups/%s/users",
		c.BaseURL, url.PathEscape(c.PoolID), url.PathEscape(group))
	body, status, err := c.post(ctx, endpoint, map[string]string{"username": username})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apiError("add user to group", status, body)
	}
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal identity request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(data))
	if err != nil {
		return nil, 0, fmt.Errorf("create identity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("call identity provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read identity response: %w", err)
	}
	if resp.StatusCode >= 300 {
		c.logger.Warn("identity provider returned non-2xx",
			"status", resp.StatusCode, "endpoint", endpoint)
	}
	return body, resp.StatusCode, nil
}

func apiError(op string, status int, body []byte) error {
	var envelope errorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return fmt.Errorf("%s: identity provider error (status %d): %s", op, status, envelope.Message)
	}
	return fmt.Errorf("%s: identity provider returned status %d", op, status)
}
