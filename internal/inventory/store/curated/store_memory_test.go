package curated

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	"domainvault/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) seed(name string) {
	d, err := models.NewCuratedDomain(name, []models.Persona{
		{Email: "ana@" + name, DisplayName: "Ana", Provider: "google", Price: id.MustParseMoney("4.00")},
		{Email: "ben@" + name, DisplayName: "Ben", Provider: "google", Price: id.MustParseMoney("4.00")},
	}, id.MustParseMoney("24.99"), id.MustParseMoney("4.00"), s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, d))
}

func newUser() id.UserID {
	return id.UserID(uuid.New())
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	s.seed("brightmail.com")

	s.Run("finds by name case-insensitively", func() {
		d, err := s.store.FindByName(s.ctx, "BrightMail.com")
		s.Require().NoError(err)
		s.Equal(models.StatusAvailable, d.Status)
		s.Len(d.Personas, 2)
	})

	s.Run("rejects duplicate names", func() {
		d, err := models.NewCuratedDomain("brightmail.com", nil, 0, 0, s.now)
		s.Require().NoError(err)
		s.ErrorIs(s.store.Create(s.ctx, d), sentinel.ErrAlreadyUsed)
	})

	s.Run("returns ErrNotFound for unknown names", func() {
		_, err := s.store.FindByName(s.ctx, "nope.io")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned values are copies", func() {
		d, err := s.store.FindByName(s.ctx, "brightmail.com")
		s.Require().NoError(err)
		d.Status = models.StatusPurchased
		d.Personas[0].Email = "mutated"

		again, err := s.store.FindByName(s.ctx, "brightmail.com")
		s.Require().NoError(err)
		s.Equal(models.StatusAvailable, again.Status)
		s.Equal("ana@brightmail.com", again.Personas[0].Email)
	})
}

func (s *InMemoryStoreSuite) TestReserve() {
	s.seed("launchpad.io")
	alice, bob := newUser(), newUser()

	d, err := s.store.Reserve(s.ctx, "launchpad.io", alice, s.now, s.now.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Equal(models.StatusReserved, d.Status)
	s.Equal(alice, *d.ReservedBy)

	s.Run("live hold blocks other users", func() {
		_, err := s.store.Reserve(s.ctx, "launchpad.io", bob, s.now.Add(time.Minute), s.now.Add(11*time.Minute))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("live hold blocks the holder too", func() {
		_, err := s.store.Reserve(s.ctx, "launchpad.io", alice, s.now.Add(time.Minute), s.now.Add(11*time.Minute))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("expired hold is re-reservable", func() {
		later := s.now.Add(11 * time.Minute)
		d, err := s.store.Reserve(s.ctx, "launchpad.io", bob, later, later.Add(10*time.Minute))
		s.Require().NoError(err)
		s.Equal(bob, *d.ReservedBy)
	})

	s.Run("unknown domain", func() {
		_, err := s.store.Reserve(s.ctx, "missing.io", bob, s.now, s.now.Add(time.Minute))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentReserve verifies that concurrent holds on one domain produce exactly one winner.
func (s *InMemoryStoreSuite) TestConcurrentReserve() {
	s.seed("contested.com")
	const goroutines = 64

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.store.Reserve(s.ctx, "contested.com", newUser(), s.now, s.now.Add(10*time.Minute))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one reserve should win")
	s.Equal(int32(goroutines-1), conflicts.Load())
}

func (s *InMemoryStoreSuite) TestRelease() {
	s.seed("quietfox.dev")
	alice, bob := newUser(), newUser()
	_, err := s.store.Reserve(s.ctx, "quietfox.dev", alice, s.now, s.now.Add(10*time.Minute))
	s.Require().NoError(err)

	s.Run("other users cannot release", func() {
		_, err := s.store.Release(s.ctx, "quietfox.dev", &bob, s.now)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("holder releases and the previous holder is reported", func() {
		released, err := s.store.Release(s.ctx, "quietfox.dev", &alice, s.now)
		s.Require().NoError(err)
		s.Equal(alice, *released.ReservedBy)

		d, err := s.store.FindByName(s.ctx, "quietfox.dev")
		s.Require().NoError(err)
		s.Equal(models.StatusAvailable, d.Status)
		s.Nil(d.ReservedBy)
		s.Nil(d.ReservedUntil)
	})

	s.Run("nothing to release", func() {
		_, err := s.store.Release(s.ctx, "quietfox.dev", nil, s.now)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("nil holder releases any hold", func() {
		_, err := s.store.Reserve(s.ctx, "quietfox.dev", bob, s.now, s.now.Add(time.Minute))
		s.Require().NoError(err)
		_, err = s.store.Release(s.ctx, "quietfox.dev", nil, s.now)
		s.Require().NoError(err)
	})
}

func (s *InMemoryStoreSuite) TestMarkPurchased() {
	s.seed("terminal.co")
	alice, bob := newUser(), newUser()
	_, err := s.store.Reserve(s.ctx, "terminal.co", alice, s.now, s.now.Add(10*time.Minute))
	s.Require().NoError(err)

	s.Run("non-holder loses while the hold is live", func() {
		_, err := s.store.MarkPurchased(s.ctx, models.PurchaseCommand{Name: "terminal.co", Buyer: bob, OwnerUserID: &bob, Now: s.now})
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("holder purchases and the hold is cleared", func() {
		target := "inbox@alice.example"
		d, err := s.store.MarkPurchased(s.ctx, models.PurchaseCommand{
			Name: "terminal.co", Buyer: alice, OwnerUserID: &alice, ForwardingTarget: &target, Now: s.now.Add(time.Minute),
		})
		s.Require().NoError(err)
		s.Equal(models.StatusPurchased, d.Status)
		s.Nil(d.ReservedBy)
		s.Nil(d.ReservedUntil)
		s.Equal(alice, *d.OwnerUserID)
		s.Equal(target, *d.ForwardingTarget)
	})

	s.Run("purchased is terminal", func() {
		later := s.now.Add(24 * time.Hour)
		_, err := s.store.Reserve(s.ctx, "terminal.co", bob, later, later.Add(time.Minute))
		s.ErrorIs(err, sentinel.ErrConflict)
		_, err = s.store.MarkPurchased(s.ctx, models.PurchaseCommand{Name: "terminal.co", Buyer: bob, OwnerUserID: &bob, Now: later})
		s.ErrorIs(err, sentinel.ErrConflict)
		_, err = s.store.Release(s.ctx, "terminal.co", nil, later)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("owned domains are listed for the owner only", func() {
		owned, err := s.store.ListByOwner(s.ctx, alice)
		s.Require().NoError(err)
		s.Require().Len(owned, 1)
		s.Equal("terminal.co", owned[0].Name)

		none, err := s.store.ListByOwner(s.ctx, bob)
		s.Require().NoError(err)
		s.Empty(none)
	})
}

func (s *InMemoryStoreSuite) TestListAvailableAndSweep() {
	for i := 0; i < 3; i++ {
		s.seed(fmt.Sprintf("mail%d.com", i))
	}
	s.seed("other.net")
	alice := newUser()
	_, err := s.store.Reserve(s.ctx, "mail1.com", alice, s.now, s.now.Add(10*time.Minute))
	s.Require().NoError(err)

	s.Run("live holds are hidden and search filters by substring", func() {
		list, err := s.store.ListAvailable(s.ctx, s.now, "MAIL")
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal("mail0.com", list[0].Name)
		s.Equal("mail2.com", list[1].Name)
	})

	s.Run("expired holds are listed before any sweep", func() {
		list, err := s.store.ListAvailable(s.ctx, s.now.Add(10*time.Minute), "")
		s.Require().NoError(err)
		s.Len(list, 4)
	})

	s.Run("sweep releases only lapsed holds", func() {
		names, err := s.store.ReleaseExpired(s.ctx, s.now.Add(5*time.Minute))
		s.Require().NoError(err)
		s.Empty(names)

		names, err = s.store.ReleaseExpired(s.ctx, s.now.Add(10*time.Minute))
		s.Require().NoError(err)
		s.Equal([]string{"mail1.com"}, names)

		d, err := s.store.FindByName(s.ctx, "mail1.com")
		s.Require().NoError(err)
		s.Equal(models.StatusAvailable, d.Status)
	})
}
