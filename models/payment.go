package models

import "time"

// PaymentStatus is the lifecycle status of a payment intent. Gateway-reported
// terminal statuses (e.g. SUCCESSFUL) pass through unmapped.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// PaymentRecord is created once per payment intent and mutated in place as
// the intent progresses. RawResponse and Error are mutually exclusive.
type PaymentRecord struct {
	PaymentID        string        `json:"paymentId"`
	Status           PaymentStatus `json:"status"`
	Amount           float64       `json:"amount"`
	Currency         string        `json:"currency"`
	WalletID         string        `json:"walletId"`
	PayerID          string        `json:"payerId,omitempty"`
	BeneficiaryID    string        `json:"beneficiaryId,omitempty"`
	YourReference    string        `json:"yourReference,omitempty"`
	TheirReference   string        `json:"theirReference,omitempty"`
	AuthorizationURL string        `json:"authorizationUrl,omitempty"`
	RawResponse      string        `json:"rawResponse,omitempty"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// PaymentInput carries the parameters of a single payment intent.
type PaymentInput struct {
	// IdempotencyToken, when supplied by the caller, becomes the payment id so
	// replays resolve to the same record.
	IdempotencyToken    string  `json:"idempotencyToken,omitempty"`
	Amount              float64 `json:"amount"`
	Currency            string  `json:"currency"`
	DestinationWalletID string  `json:"destinationWalletId"`
	PayerID             string  `json:"payerId,omitempty"`
	BeneficiaryID       string  `json:"beneficiaryId,omitempty"`
	YourReference       string  `json:"yourReference,omitempty"`
	TheirReference      string  `json:"theirReference,omitempty"`
	BeneficiaryToken    string  `json:"beneficiaryToken,omitempty"`
}

// PaymentResult is returned to the caller on successful submission.
type PaymentResult struct {
	PaymentID        string        `json:"paymentId"`
	AuthorizationURL string        `json:"authorizationUrl,omitempty"`
	Status           PaymentStatus `json:"status"`
}
