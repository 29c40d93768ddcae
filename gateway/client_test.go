package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateClientCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		assert.Equal(t, "cid", body["client_id"])
		assert.Equal(t, "csecret", body["client_secret"])
		fmt.Fprint(w, `{"access_token":"tok-abc","token_type":"Bearer"}`)
	}))
	defer server.Close()

	c := NewClient(Config{
		BaseURL:      server.URL,
		TenantID:     "t1",
		Scheme:       AuthClientCredentials,
		ClientID:     "cid",
		ClientSecret: "csecret",
	}, nil)

	token, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}

func TestAuthenticatePasswordLoginStripsBearerPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authentication/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "svc@example.com", body["identity"])
		assert.Equal(t, "hunter2", body["password"])
		fmt.Fprint(w, `{"headerValue":"Bearer  tok-xyz"}`)
	}))
	defer server.Close()

	c := NewClient(Config{
		BaseURL:  server.URL,
		Scheme:   AuthPasswordLogin,
		Identity: "svc@example.com",
		Password: "hunter2",
	}, nil)

	token, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", token)
}

func TestAuthenticateUnknownScheme(t *testing.T) {
	c := NewClient(Config{Scheme: AuthScheme("mystery")}, nil)
	_, err := c.Authenticate(context.Background())
	assert.ErrorContains(t, err, "unsupported gateway auth scheme")
}

func TestCreateCustomerEnvelopeShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"flat id", `{"id":"cus-1"}`, "cus-1"},
		{"flat customerId", `{"customerId":"cus-2"}`, "cus-2"},
		{"nested data id", `{"data":{"id":"cus-3"}}`, "cus-3"},
		{"nested data customerId", `{"data":{"customerId":"cus-4"}}`, "cus-4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/tenants/t1/customers", r.URL.Path)
				assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
				assert.Equal(t, "customer-sub-1", r.Header.Get("Idempotency-Key"))
				w.WriteHeader(http.StatusCreated)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			c := NewClient(Config{BaseURL: server.URL, TenantID: "t1", Scheme: AuthClientCredentials}, nil)
			id, err := c.CreateCustomer(context.Background(), "tok", "customer-sub-1", CustomerInput{
				FirstName: "Thandi",
				LastName:  "Mokoena",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestCreateCustomerNoRecognizableID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"reference":"ref-1"}}`)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, TenantID: "t1"}, nil)
	_, err := c.CreateCustomer(context.Background(), "tok", "k", CustomerInput{FirstName: "A", LastName: "B"})
	assert.ErrorContains(t, err, "no customer id")
}

func TestCreateWallet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenants/t1/customers/cus-1/wallets", r.URL.Path)
		assert.Equal(t, "wallet-sub-1", r.Header.Get("Idempotency-Key"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ZAR", body["currency"])
		fmt.Fprint(w, `{"data":{"walletId":"wal-1"}}`)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, TenantID: "t1"}, nil)
	id, err := c.CreateWallet(context.Background(), "tok", "wallet-sub-1", "cus-1", "ZAR")
	require.NoError(t, err)
	assert.Equal(t, "wal-1", id)
}

func TestCreatePaymentReturnsEnvelopeAndRawBody(t *testing.T) {
	raw := `{"status":"SUCCESSFUL","completionUrl":null}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenants/t1/payments", r.URL.Path)
		var req PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "collection", req.Type)
		assert.Equal(t, "pay-1", req.ExternalUniqueID)
		fmt.Fprint(w, raw)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, TenantID: "t1"}, nil)
	envelope, body, err := c.CreatePayment(context.Background(), "tok", PaymentRequest{
		Type:                "collection",
		Amount:              50,
		Currency:            "ZAR",
		DestinationWalletID: "123",
		ExternalUniqueID:    "pay-1",
	})
	require.NoError(t, err)
	assert.Equal(t, raw, string(body))
	assert.Equal(t, "SUCCESSFUL", envelope["status"])
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"wallet currency mismatch"}`)
	}))
	defer server.Close()

	c := NewClient(Config{BaseURL: server.URL, TenantID: "t1"}, nil)
	_, err := c.CreateWallet(context.Background(), "tok", "k", "cus-1", "ZAR")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Message, "wallet currency mismatch")
}

func TestExtract(t *testing.T) {
	envelope := map[string]any{
		"id":   "",
		"data": map[string]any{"id": "inner"},
	}

	// Empty string at the first path must not win over a later match.
	got, ok := Extract(envelope, []string{"id"}, []string{"data", "id"})
	require.True(t, ok)
	assert.Equal(t, "inner", got)

	_, ok = Extract(envelope, []string{"missing"}, []string{"data", "missing"})
	assert.False(t, ok)

	// Non-string leaves are skipped.
	_, ok = Extract(map[string]any{"id": 42}, []string{"id"})
	assert.False(t, ok)
}
