package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domainvault/internal/purchase/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

type InMemoryPurchaseStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	t0    time.Time
	user  id.UserID
}

func TestInMemoryPurchaseStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryPurchaseStoreSuite))
}

func (s *InMemoryPurchaseStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s.user = id.UserID(uuid.New())
}

func (s *InMemoryPurchaseStoreSuite) record(orderID string, at time.Time) *models.PurchaseRecord {
	return &models.PurchaseRecord{
		OrderID: orderID, UserID: s.user, Domain: "acme.com", SLD: "acme", TLD: "com", Years: 1,
		Status: models.RecordPending, Price: id.MustParseMoney("12.00"), CreatedAt: at, UpdatedAt: at,
	}
}

func (s *InMemoryPurchaseStoreSuite) TestCreateRejectsDuplicateOrderID() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("1001", s.t0)))
	s.ErrorIs(s.store.Create(s.ctx, s.record("1001", s.t0)), sentinel.ErrAlreadyUsed)

	got, err := s.store.FindByOrderID(s.ctx, "1001")
	s.Require().NoError(err)
	s.Equal("acme.com", got.Domain)

	_, err = s.store.FindByOrderID(s.ctx, "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryPurchaseStoreSuite) TestListByUserNewestFirst() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("1", s.t0)))
	s.Require().NoError(s.store.Create(s.ctx, s.record("2", s.t0.Add(time.Minute))))
	other := s.record("3", s.t0)
	other.UserID = id.UserID(uuid.New())
	s.Require().NoError(s.store.Create(s.ctx, other))

	records, err := s.store.ListByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("2", records[0].OrderID)
	s.Equal("1", records[1].OrderID)
}

func (s *InMemoryPurchaseStoreSuite) TestUpdateStatusIsConditional() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("1001", s.t0)))
	exp := s.t0.AddDate(1, 0, 0)

	updated, err := s.store.UpdateStatus(s.ctx, "1001", models.RecordPending, models.RecordActive, &exp, s.t0.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(models.RecordActive, updated.Status)
	s.Require().NotNil(updated.ExpirationDate)
	s.True(updated.ExpirationDate.Equal(exp))

	_, err = s.store.UpdateStatus(s.ctx, "1001", models.RecordPending, models.RecordFailed, nil, s.t0)
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.UpdateStatus(s.ctx, "missing", models.RecordPending, models.RecordActive, nil, s.t0)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryPurchaseStoreSuite) TestUpdateStatusRejectsLifecycleViolations() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("1002", s.t0)))

	_, err := s.store.UpdateStatus(s.ctx, "1002", models.RecordPending, models.RecordExpired, nil, s.t0)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByOrderID(s.ctx, "1002")
	s.Require().NoError(err)
	s.Equal(models.RecordPending, got.Status)
}

func (s *InMemoryPurchaseStoreSuite) TestReturnedRecordsAreCopies() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("1001", s.t0)))
	got, err := s.store.FindByOrderID(s.ctx, "1001")
	s.Require().NoError(err)
	got.Status = models.RecordFailed

	again, err := s.store.FindByOrderID(s.ctx, "1001")
	s.Require().NoError(err)
	s.Equal(models.RecordPending, again.Status)
}
