package store

import (
	"context"
	"sync"
	"time"

	"tipping-platform/models"
)

// Memory is an in-process store with the same write semantics as Postgres.
// It backs package tests and local runs without a database.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int64
	profiles map[string]map[string]any
	payments map[string]*models.PaymentRecord
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		counters: map[string]int64{},
		profiles: map[string]map[string]any{},
		payments: map[string]*models.PaymentRecord{},
	}
}

func (s *Memory) Increment(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

func (s *Memory) PutIfAbsent(ctx context.Context, id string, attrs map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; ok {
		return ErrProfileExists
	}
	copied := make(map[string]any, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	s.profiles[id] = copied
	return nil
}

func (s *Memory) UpdateMerge(ctx context.Context, id string, merge Merge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	for k, v := range merge.SetIfAbsent {
		if _, exists := attrs[k]; !exists {
			attrs[k] = v
		}
	}
	for k, v := range merge.SetAlways {
		attrs[k] = v
	}
	return nil
}

func (s *Memory) Get(ctx context.Context, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attrs, ok := s.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	copied := make(map[string]any, len(attrs))
	for k, v := range attrs {
		copied[k] = v
	}
	return copied, nil
}

func (s *Memory) CreatePending(ctx context.Context, rec *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[rec.PaymentID]; ok {
		return nil
	}
	copied := *rec
	s.payments[rec.PaymentID] = &copied
	return nil
}

func (s *Memory) MarkFailed(ctx context.Context, paymentID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.payments[paymentID]
	if !ok {
		return ErrPaymentNotFound
	}
	rec.Status = models.PaymentStatusFailed
	rec.Error = errMsg
	rec.RawResponse = ""
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) MarkResult(ctx context.Context, paymentID string, status models.PaymentStatus, authorizationURL, rawResponse string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.payments[paymentID]
	if !ok {
		return ErrPaymentNotFound
	}
	rec.Status = status
	rec.AuthorizationURL = authorizationURL
	rec.RawResponse = rawResponse
	rec.Error = ""
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Memory) GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	copied := *rec
	return &copied, nil
}

// PaymentCount reports how many payment records exist. Used by tests to
// assert that failed validation never persists anything.
func (s *Memory) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}
