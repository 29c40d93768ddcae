// Package store persists profiles, account-number counters, and payment
// records. The write semantics here carry the workflow's idempotency
// guarantees: conditional creates for duplicate suppression, set-if-absent
// merges for racing updaters, and an unconditional atomic increment for
// account-number allocation.
package store

import (
	"context"
	"errors"

	"tipping-platform/models"
)

var (
	// ErrProfileExists is returned by PutIfAbsent when the row already exists.
	// Provisioning treats it as the expected shape of a retried step.
	ErrProfileExists = errors.New("profile already exists")

	ErrProfileNotFound = errors.New("profile not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// Merge describes a two-part profile update. SetIfAbsent fields only land
// when the profile does not already carry a value for them; SetAlways fields
// are overwritten unconditionally.
type Merge struct {
	SetIfAbsent map[string]any
	SetAlways   map[string]any
}

// ProfileStore stores per-account-type profile records.
type ProfileStore interface {
	// PutIfAbsent creates the profile or returns ErrProfileExists.
	PutIfAbsent(ctx context.Context, id string, attrs map[string]any) error
	// UpdateMerge applies a set-if-absent/set-always merge to an existing
	// profile.
	UpdateMerge(ctx context.Context, id string, merge Merge) error
	// Get returns the profile's attributes.
	Get(ctx context.Context, id string) (map[string]any, error)
}

// CounterStore mints sequential values from named counters.
type CounterStore interface {
	// Increment atomically adds one to the named counter and returns the new
	// value. Safe under concurrent callers; never read-modify-write.
	Increment(ctx context.Context, name string) (int64, error)
}

// PaymentStore persists payment records through their lifecycle.
type PaymentStore interface {
	// CreatePending inserts the record in PENDING state. A replay with an
	// already-persisted payment id is not an error; the existing record wins.
	CreatePending(ctx context.Context, rec *models.PaymentRecord) error
	// MarkFailed moves the record to FAILED with the given diagnostic,
	// clearing any raw response.
	MarkFailed(ctx context.Context, paymentID, errMsg string) error
	// MarkResult records the gateway's terminal shape, clearing any error.
	MarkResult(ctx context.Context, paymentID string, status models.PaymentStatus, authorizationURL, rawResponse string) error
	// GetPayment returns the record for a payment id.
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
}
