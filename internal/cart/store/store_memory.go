package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"domainvault/internal/cart/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

// InMemory keeps cart items in a map. Items are never deleted; removal is a
// status transition.
type InMemory struct {
	mu    sync.RWMutex
	items map[id.CartItemID]*models.CartItem
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[id.CartItemID]*models.CartItem)}
}

// Create inserts an active item. A second active item for the same user and
// domain returns sentinel.ErrAlreadyUsed.
func (s *InMemory) Create(_ context.Context, item *models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.UserID == item.UserID && existing.Domain == item.Domain && existing.Status == models.ItemActive {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.items[item.ID] = item.Clone()
	return nil
}

// FindForUser returns the item only when owned by userID.
func (s *InMemory) FindForUser(_ context.Context, userID id.UserID, itemID id.CartItemID) (*models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok || item.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	return item.Clone(), nil
}

func (s *InMemory) ListActive(_ context.Context, userID id.UserID) ([]*models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CartItem
	for _, item := range s.items {
		if item.UserID == userID && item.Status == models.ItemActive {
			out = append(out, item.Clone())
		}
	}
	sortItems(out)
	return out, nil
}

// UpdateYears changes the term and total of an active item.
func (s *InMemory) UpdateYears(_ context.Context, userID id.UserID, itemID id.CartItemID, years int, total id.Money, now time.Time) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.activeItem(userID, itemID)
	if err != nil {
		return nil, err
	}
	item.Years = years
	item.TotalPrice = total
	item.UpdatedAt = now
	return item.Clone(), nil
}

// Transition moves an active item to status. It returns sentinel.ErrNotFound
// for a missing or foreign item and sentinel.ErrConflict when the item is no
// longer active.
func (s *InMemory) Transition(_ context.Context, userID id.UserID, itemID id.CartItemID, status models.ItemStatus, orderID *string, now time.Time) (*models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.activeItem(userID, itemID)
	if err != nil {
		return nil, err
	}
	item.Status = status
	if orderID != nil {
		o := *orderID
		item.OrderID = &o
	}
	item.UpdatedAt = now
	return item.Clone(), nil
}

// RemoveAll marks every active item of userID removed and returns how many changed.
func (s *InMemory) RemoveAll(_ context.Context, userID id.UserID, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		if item.UserID == userID && item.Status == models.ItemActive {
			item.Status = models.ItemRemoved
			item.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// ExpireBefore marks active items created before cutoff as expired.
func (s *InMemory) ExpireBefore(_ context.Context, cutoff, now time.Time) ([]id.CartItemID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*models.CartItem
	for _, item := range s.items {
		if item.Status == models.ItemActive && item.CreatedAt.Before(cutoff) {
			item.Status = models.ItemExpired
			item.UpdatedAt = now
			expired = append(expired, item)
		}
	}
	sortItems(expired)
	ids := make([]id.CartItemID, len(expired))
	for i, item := range expired {
		ids[i] = item.ID
	}
	return ids, nil
}

func (s *InMemory) activeItem(userID id.UserID, itemID id.CartItemID) (*models.CartItem, error) {
	item, ok := s.items[itemID]
	if !ok || item.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	if item.Status != models.ItemActive {
		return nil, sentinel.ErrConflict
	}
	return item, nil
}

func sortItems(items []*models.CartItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Domain < items[j].Domain
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
