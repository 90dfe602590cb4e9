package curated

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded curated domain store. Every conditional
// transition runs inside one critical section, which is the CAS boundary.
type InMemory struct {
	mu      sync.RWMutex
	domains map[string]*models.CuratedDomain
}

func NewInMemory() *InMemory {
	return &InMemory{domains: make(map[string]*models.CuratedDomain)}
}

func (s *InMemory) Create(_ context.Context, d *models.CuratedDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.domains[d.Name]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.domains[d.Name] = d.Clone()
	return nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.CuratedDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.domains[models.NormalizeName(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *InMemory) ListAvailable(_ context.Context, now time.Time, search string) ([]*models.CuratedDomain, error) {
	search = strings.ToLower(strings.TrimSpace(search))
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.CuratedDomain, 0, len(s.domains))
	for _, d := range s.domains {
		if !d.EffectivelyAvailable(now) {
			continue
		}
		if search != "" && !strings.Contains(d.Name, search) {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner id.UserID) ([]*models.CuratedDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CuratedDomain
	for _, d := range s.domains {
		if d.Status == models.StatusPurchased && d.OwnerUserID != nil && *d.OwnerUserID == owner {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Reserve places a hold when the domain is available or its hold has lapsed.
// Returns sentinel.ErrConflict when the domain is held or purchased.
func (s *InMemory) Reserve(_ context.Context, name string, userID id.UserID, now, until time.Time) (*models.CuratedDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[models.NormalizeName(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !d.EffectivelyAvailable(now) {
		return nil, sentinel.ErrConflict
	}
	holder := userID
	reservedUntil := until
	d.Status = models.StatusReserved
	d.ReservedBy = &holder
	d.ReservedUntil = &reservedUntil
	d.UpdatedAt = now
	return d.Clone(), nil
}

// Release clears a hold. A nil holder releases regardless of who holds it.
func (s *InMemory) Release(_ context.Context, name string, holder *id.UserID, now time.Time) (*models.CuratedDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[models.NormalizeName(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if d.Status != models.StatusReserved {
		return nil, sentinel.ErrConflict
	}
	if holder != nil && (d.ReservedBy == nil || *d.ReservedBy != *holder) {
		return nil, sentinel.ErrConflict
	}
	released := d.Clone()
	clearHold(d, now)
	return released, nil
}

// MarkPurchased is the purchase CAS: it succeeds only while the domain is
// effectively available or held by the buyer.
func (s *InMemory) MarkPurchased(_ context.Context, cmd models.PurchaseCommand) (*models.CuratedDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.domains[models.NormalizeName(cmd.Name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !d.CanPurchase(cmd.Buyer, cmd.Now) {
		return nil, sentinel.ErrConflict
	}
	purchasedAt := cmd.Now
	d.Status = models.StatusPurchased
	d.ReservedBy = nil
	d.ReservedUntil = nil
	d.OwnerUserID = cloneUserID(cmd.OwnerUserID)
	d.ForwardingTarget = cloneString(cmd.ForwardingTarget)
	d.PurchasedAt = &purchasedAt
	d.UpdatedAt = cmd.Now
	return d.Clone(), nil
}

// ReleaseExpired returns every lapsed hold to available and reports the names.
func (s *InMemory) ReleaseExpired(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name, d := range s.domains {
		if d.HoldExpired(now) {
			clearHold(d, now)
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func clearHold(d *models.CuratedDomain, now time.Time) {
	d.Status = models.StatusAvailable
	d.ReservedBy = nil
	d.ReservedUntil = nil
	d.UpdatedAt = now
}

func cloneUserID(u *id.UserID) *id.UserID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
