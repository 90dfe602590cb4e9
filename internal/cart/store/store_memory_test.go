package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domainvault/internal/cart/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

type InMemoryCartStoreSuite struct {
	suite.Suite
	store       *InMemory
	ctx         context.Context
	t0          time.Time
	alice, carl id.UserID
}

func TestInMemoryCartStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCartStoreSuite))
}

func (s *InMemoryCartStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.alice = id.UserID(uuid.New())
	s.carl = id.UserID(uuid.New())
}

func (s *InMemoryCartStoreSuite) newItem(userID id.UserID, domain string, at time.Time) *models.CartItem {
	return &models.CartItem{
		ID:                id.CartItemID(uuid.New()),
		UserID:            userID,
		Domain:            domain,
		SLD:               domain[:len(domain)-4],
		TLD:               "com",
		RegistrationPrice: id.MustParseMoney("10.00"),
		TotalPrice:        id.MustParseMoney("10.00"),
		Years:             1,
		Status:            models.ItemActive,
		CreatedAt:         at,
		UpdatedAt:         at,
	}
}

func (s *InMemoryCartStoreSuite) TestOneActiveItemPerDomain() {
	first := s.newItem(s.alice, "acme.com", s.t0)
	s.Require().NoError(s.store.Create(s.ctx, first))

	err := s.store.Create(s.ctx, s.newItem(s.alice, "acme.com", s.t0))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	s.Run("another user may hold the same domain", func() {
		s.NoError(s.store.Create(s.ctx, s.newItem(s.carl, "acme.com", s.t0)))
	})

	s.Run("a removed item frees the slot", func() {
		_, err := s.store.Transition(s.ctx, s.alice, first.ID, models.ItemRemoved, nil, s.t0)
		s.Require().NoError(err)
		s.NoError(s.store.Create(s.ctx, s.newItem(s.alice, "acme.com", s.t0)))
	})
}

func (s *InMemoryCartStoreSuite) TestScopedByOwner() {
	item := s.newItem(s.alice, "acme.com", s.t0)
	s.Require().NoError(s.store.Create(s.ctx, item))

	_, err := s.store.FindForUser(s.ctx, s.carl, item.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Transition(s.ctx, s.carl, item.ID, models.ItemRemoved, nil, s.t0)
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.UpdateYears(s.ctx, s.carl, item.ID, 2, id.MustParseMoney("20.00"), s.t0)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryCartStoreSuite) TestTransitionOnlyFromActive() {
	item := s.newItem(s.alice, "acme.com", s.t0)
	s.Require().NoError(s.store.Create(s.ctx, item))

	orderID := "1001"
	got, err := s.store.Transition(s.ctx, s.alice, item.ID, models.ItemPurchased, &orderID, s.t0)
	s.Require().NoError(err)
	s.Equal(models.ItemPurchased, got.Status)
	s.Equal("1001", *got.OrderID)

	_, err = s.store.Transition(s.ctx, s.alice, item.ID, models.ItemRemoved, nil, s.t0)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryCartStoreSuite) TestListAndClear() {
	s.Require().NoError(s.store.Create(s.ctx, s.newItem(s.alice, "bravo.com", s.t0.Add(time.Minute))))
	s.Require().NoError(s.store.Create(s.ctx, s.newItem(s.alice, "alpha.com", s.t0)))
	s.Require().NoError(s.store.Create(s.ctx, s.newItem(s.carl, "carl.com", s.t0)))

	items, err := s.store.ListActive(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Require().Len(items, 2)
	s.Equal("alpha.com", items[0].Domain)

	n, err := s.store.RemoveAll(s.ctx, s.alice, s.t0)
	s.Require().NoError(err)
	s.Equal(2, n)

	items, err = s.store.ListActive(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Empty(items)

	items, err = s.store.ListActive(s.ctx, s.carl)
	s.Require().NoError(err)
	s.Len(items, 1)
}

func (s *InMemoryCartStoreSuite) TestExpireBefore() {
	old := s.newItem(s.alice, "old.com", s.t0)
	fresh := s.newItem(s.alice, "fresh.com", s.t0.Add(48*time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, old))
	s.Require().NoError(s.store.Create(s.ctx, fresh))

	ids, err := s.store.ExpireBefore(s.ctx, s.t0.Add(24*time.Hour), s.t0.Add(72*time.Hour))
	s.Require().NoError(err)
	s.Equal([]id.CartItemID{old.ID}, ids)

	got, err := s.store.FindForUser(s.ctx, s.alice, old.ID)
	s.Require().NoError(err)
	s.Equal(models.ItemExpired, got.Status)
}
