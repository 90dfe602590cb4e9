//go:build integration

package curated_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domainvault/internal/inventory/models"
	"domainvault/internal/inventory/store/curated"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
	"domainvault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *curated.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = curated.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "curated_domains"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) seed(name string) {
	d, err := models.NewCuratedDomain(name, []models.Persona{
		{Email: "ana@" + name, DisplayName: "Ana", Provider: "google", Price: id.MustParseMoney("4.00")},
	}, id.MustParseMoney("24.99"), id.MustParseMoney("4.00"), s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), d))
}

// TestConcurrentReserve verifies the conditional UPDATE admits exactly one holder.
func (s *PostgresStoreSuite) TestConcurrentReserve() {
	ctx := context.Background()
	s.seed("contested.com")
	const goroutines = 50

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.store.Reserve(ctx, "contested.com", id.UserID(uuid.New()), s.now, s.now.Add(10*time.Minute))
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one reserve should succeed")
	s.Equal(int32(goroutines-1), conflicts.Load(), "all others should get a conflict")
}

// TestStaleHoldIsTakenOver covers a hold placed at T=0 for 10 minutes and a second user at T=11m.
func (s *PostgresStoreSuite) TestStaleHoldIsTakenOver() {
	ctx := context.Background()
	s.seed("stale.io")
	alice, bob := id.UserID(uuid.New()), id.UserID(uuid.New())

	_, err := s.store.Reserve(ctx, "stale.io", alice, s.now, s.now.Add(10*time.Minute))
	s.Require().NoError(err)

	at := s.now.Add(11 * time.Minute)
	list, err := s.store.ListAvailable(ctx, at, "stale")
	s.Require().NoError(err)
	s.Require().Len(list, 1, "an expired hold is listed as available before any sweep")

	d, err := s.store.Reserve(ctx, "stale.io", bob, at, at.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Equal(bob, *d.ReservedBy)

	_, err = s.store.Release(ctx, "stale.io", &alice, at)
	s.ErrorIs(err, sentinel.ErrConflict, "the previous holder can no longer release")
}

func (s *PostgresStoreSuite) TestPurchaseIsTerminal() {
	ctx := context.Background()
	s.seed("final.dev")
	alice, bob := id.UserID(uuid.New()), id.UserID(uuid.New())

	_, err := s.store.Reserve(ctx, "final.dev", alice, s.now, s.now.Add(10*time.Minute))
	s.Require().NoError(err)

	_, err = s.store.MarkPurchased(ctx, models.PurchaseCommand{Name: "final.dev", Buyer: bob, OwnerUserID: &bob, Now: s.now})
	s.ErrorIs(err, sentinel.ErrConflict)

	target := "forward@alice.example"
	d, err := s.store.MarkPurchased(ctx, models.PurchaseCommand{
		Name: "final.dev", Buyer: alice, OwnerUserID: &alice, ForwardingTarget: &target, Now: s.now,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusPurchased, d.Status)
	s.Nil(d.ReservedBy)
	s.Equal(target, *d.ForwardingTarget)

	later := s.now.Add(time.Hour)
	_, err = s.store.Reserve(ctx, "final.dev", bob, later, later.Add(time.Minute))
	s.ErrorIs(err, sentinel.ErrConflict)

	owned, err := s.store.ListByOwner(ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(owned, 1)
}

func (s *PostgresStoreSuite) TestAdminPurchaseHasNoOwner() {
	ctx := context.Background()
	s.seed("house.co")
	admin := id.UserID(uuid.New())

	d, err := s.store.MarkPurchased(ctx, models.PurchaseCommand{Name: "house.co", Buyer: admin, Now: s.now})
	s.Require().NoError(err)
	s.Nil(d.OwnerUserID)

	owned, err := s.store.ListByOwner(ctx, admin)
	s.Require().NoError(err)
	s.Empty(owned)
}

func (s *PostgresStoreSuite) TestReleaseExpired() {
	ctx := context.Background()
	s.seed("a-expired.com")
	s.seed("b-live.com")
	user := id.UserID(uuid.New())

	_, err := s.store.Reserve(ctx, "a-expired.com", user, s.now, s.now.Add(time.Minute))
	s.Require().NoError(err)
	_, err = s.store.Reserve(ctx, "b-live.com", user, s.now, s.now.Add(time.Hour))
	s.Require().NoError(err)

	names, err := s.store.ReleaseExpired(ctx, s.now.Add(2*time.Minute))
	s.Require().NoError(err)
	s.Equal([]string{"a-expired.com"}, names)

	live, err := s.store.FindByName(ctx, "b-live.com")
	s.Require().NoError(err)
	s.Equal(models.StatusReserved, live.Status)
}
