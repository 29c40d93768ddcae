package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tipping-platform/models"
)

// Postgres implements ProfileStore, CounterStore, and PaymentStore on a
// pgx connection pool.
//
// Expected schema:
//
//	CREATE TABLE counters (
//	    name  TEXT PRIMARY KEY,
//	    value BIGINT NOT NULL
//	);
//	CREATE TABLE profiles (
//	    id         TEXT PRIMARY KEY,
//	    attrs      JSONB NOT NULL DEFAULT '{}'::jsonb,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE TABLE payments (
//	    payment_id        TEXT PRIMARY KEY,
//	    status            TEXT NOT NULL,
//	    amount            DOUBLE PRECISION NOT NULL,
//	    currency          TEXT NOT NULL,
//	    wallet_id         TEXT NOT NULL,
//	    payer_id          TEXT,
//	    beneficiary_id    TEXT,
//	    your_reference    TEXT,
//	    their_reference   TEXT,
//	    authorization_url TEXT,
//	    raw_response      TEXT,
//	    error             TEXT,
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    updated_at        TIMESTAMPTZ NOT NULL
//	);
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store backed by the given pool.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Increment bumps the named counter in a single upsert statement, so
// concurrent callers each observe a distinct value with no gaps.
func (s *Postgres) Increment(ctx context.Context, name string) (int64, error) {
	const q = `
		INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value
	`
	var value int64
	if err := s.db.QueryRow(ctx, q, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", name, err)
	}
	return value, nil
}

// PutIfAbsent inserts the profile; an existing row is reported as
// ErrProfileExists without being touched.
func (s *Postgres) PutIfAbsent(ctx context.Context, id string, attrs map[string]any) error {
	payload, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal profile attrs: %w", err)
	}
	const q = `
		INSERT INTO profiles (id, attrs, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, q, id, payload)
	if err != nil {
		return fmt.Errorf("create profile %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileExists
	}
	return nil
}

// UpdateMerge applies the merge in a single statement. jsonb concatenation
// keeps the right-hand side on key collisions, so prepending the set-if-absent
// document preserves every value the profile already has, while appending the
// set-always document overwrites unconditionally.
func (s *Postgres) UpdateMerge(ctx context.Context, id string, merge Merge) error {
	ifAbsent, err := json.Marshal(nonNil(merge.SetIfAbsent))
	if err != nil {
		return fmt.Errorf("marshal set-if-absent attrs: %w", err)
	}
	always, err := json.Marshal(nonNil(merge.SetAlways))
	if err != nil {
		return fmt.Errorf("marshal set-always attrs: %w", err)
	}
	const q = `
		UPDATE profiles
		SET attrs = ($2::jsonb || attrs) || $3::jsonb, updated_at = now()
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, q, id, ifAbsent, always)
	if err != nil {
		return fmt.Errorf("merge profile %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (map[string]any, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `SELECT attrs FROM profiles WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile %q: %w", id, err)
	}
	attrs := map[string]any{}
	if err := json.Unmarshal(payload, &attrs); err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", id, err)
	}
	return attrs, nil
}

// CreatePending inserts the PENDING record. A conflicting payment id means an
// earlier attempt already persisted it; the existing record is left alone.
func (s *Postgres) CreatePending(ctx context.Context, rec *models.PaymentRecord) error {
	const q = `
		INSERT INTO payments (
			payment_id, status, amount, currency, wallet_id,
			payer_id, beneficiary_id, your_reference, their_reference,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (payment_id) DO NOTHING
	`
	tag, err := s.db.Exec(ctx, q,
		rec.PaymentID, rec.Status, rec.Amount, rec.Currency, rec.WalletID,
		rec.PayerID, rec.BeneficiaryID, rec.YourReference, rec.TheirReference,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create payment %q: %w", rec.PaymentID, err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Info("pending payment already recorded", "payment_id", rec.PaymentID)
	}
	return nil
}

func (s *Postgres) MarkFailed(ctx context.Context, paymentID, errMsg string) error {
	const q = `
		UPDATE payments
		SET status = $2, error = $3, raw_response = NULL, updated_at = now()
		WHERE payment_id = $1
	`
	tag, err := s.db.Exec(ctx, q, paymentID, models.PaymentStatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("mark payment %q failed: %w", paymentID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *Postgres) MarkResult(ctx context.Context, paymentID string, status models.PaymentStatus, authorizationURL, rawResponse string) error {
	const q = `
		UPDATE payments
		SET status = $2, authorization_url = $3, raw_response = $4, error = NULL, updated_at = now()
		WHERE payment_id = $1
	`
	tag, err := s.db.Exec(ctx, q, paymentID, status, nullable(authorizationURL), rawResponse)
	if err != nil {
		return fmt.Errorf("record payment %q result: %w", paymentID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *Postgres) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	const q = `
		SELECT payment_id, status, amount, currency, wallet_id,
		       COALESCE(payer_id, ''), COALESCE(beneficiary_id, ''),
		       COALESCE(your_reference, ''), COALESCE(their_reference, ''),
		       COALESCE(authorization_url, ''), COALESCE(raw_response, ''),
		       COALESCE(error, ''), created_at, updated_at
		FROM payments WHERE payment_id = $1
	`
	var rec models.PaymentRecord
	err := s.db.QueryRow(ctx, q, paymentID).Scan(
		&rec.PaymentID, &rec.Status, &rec.Amount, &rec.Currency, &rec.WalletID,
		&rec.PayerID, &rec.BeneficiaryID, &rec.YourReference, &rec.TheirReference,
		&rec.AuthorizationURL, &rec.RawResponse, &rec.Error,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment %q: %w", paymentID, err)
	}
	return &rec, nil
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
