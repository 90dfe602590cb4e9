package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"domainvault/internal/purchase/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

// InMemory keeps purchase records keyed by registrar order id.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*models.PurchaseRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*models.PurchaseRecord)}
}

func (s *InMemory) Create(_ context.Context, r *models.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.OrderID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.records[r.OrderID] = clone(r)
	return nil
}

func (s *InMemory) FindByOrderID(_ context.Context, orderID string) (*models.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

// ListByUser returns the user's records newest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.PurchaseRecord, 0)
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus moves a record from one status to another. A transition the
// lifecycle does not allow yields sentinel.ErrInvalidState; a record in any
// other status than from yields sentinel.ErrConflict.
func (s *InMemory) UpdateStatus(_ context.Context, orderID string, from, to models.RecordStatus, expiration *time.Time, now time.Time) (*models.PurchaseRecord, error) {
	if !from.CanTransitionTo(to) {
		return nil, sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if r.Status != from {
		return nil, sentinel.ErrConflict
	}
	r.Status = to
	if expiration != nil {
		t := *expiration
		r.ExpirationDate = &t
	}
	r.UpdatedAt = now
	return clone(r), nil
}

func clone(r *models.PurchaseRecord) *models.PurchaseRecord {
	c := *r
	if r.ExpirationDate != nil {
		t := *r.ExpirationDate
		c.ExpirationDate = &t
	}
	return &c
}
