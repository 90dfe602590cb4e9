package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"domainvault/internal/inventory/models"
	"domainvault/internal/inventory/service"
	"domainvault/internal/inventory/store/curated"
	id "domainvault/pkg/domain"
	"domainvault/pkg/testutil"
)

type fixture struct {
	router http.Handler
	store  *curated.InMemory
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := curated.NewInMemory()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	for _, name := range []string{"brightmail.com", "launchpad.io"} {
		d, err := models.NewCuratedDomain(name, []models.Persona{
			{Email: "ana@" + name, DisplayName: "Ana", Provider: "google", Price: id.MustParseMoney("2.00")},
		}, id.MustParseMoney("15.00"), id.MustParseMoney("2.00"), now)
		require.NoError(t, err)
		require.NoError(t, store.Create(context.Background(), d))
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(service.NewRegistry(store), service.NewReservations(store), logger)
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, store: store, now: now}
}

func (f *fixture) do(req *http.Request, actor id.Actor) *http.Request {
	return testutil.AtTime(testutil.WithActor(req, actor), f.now)
}

func TestListAndEmails(t *testing.T) {
	f := newFixture(t)
	user := id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleUser}

	rr := testutil.DoRequest(f.router, f.do(testutil.NewRequest(t, http.MethodGet, "/domains/curated?search=bright"), user))
	testutil.AssertStatusOK(t, rr)
	list := testutil.UnmarshalResponse[models.ListResponse](t, rr)
	require.Len(t, list.Domains, 1)
	assert.Equal(t, "brightmail.com", list.Domains[0].Name)
	assert.Equal(t, id.MustParseMoney("15.00"), list.Domains[0].DomainPrice)

	rr = testutil.DoRequest(f.router, f.do(testutil.NewRequest(t, http.MethodGet, "/domains/curated/unknown.io/emails"), user))
	testutil.AssertStatusOK(t, rr)
	emails := testutil.UnmarshalResponse[models.EmailsResponse](t, rr)
	assert.Empty(t, emails.Personas)
}

func TestReserveAndRelease(t *testing.T) {
	f := newFixture(t)
	alice := id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleUser}
	bob := id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleUser}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/domains/curated/launchpad.io/reservation", map[string]int{"ttl_seconds": 300})
	rr := testutil.DoRequest(f.router, f.do(req, alice))
	testutil.AssertStatus(t, rr, http.StatusCreated)
	token := testutil.UnmarshalResponse[models.ReservationToken](t, rr)
	assert.Equal(t, f.now.Add(5*time.Minute), token.ReservedUntil)

	rr = testutil.DoRequest(f.router, f.do(testutil.NewRequest(t, http.MethodPost, "/domains/curated/launchpad.io/reservation"), bob))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "domain_unavailable")

	rr = testutil.DoRequest(f.router, f.do(testutil.NewRequest(t, http.MethodDelete, "/domains/curated/launchpad.io/reservation"), bob))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")

	rr = testutil.DoRequest(f.router, f.do(testutil.NewRequest(t, http.MethodDelete, "/domains/curated/launchpad.io/reservation"), alice))
	testutil.AssertStatus(t, rr, http.StatusNoContent)
}

func TestReserveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	alice := id.Actor{UserID: id.UserID(uuid.New()), Role: id.RoleUser}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/domains/curated/launchpad.io/reservation", map[string]int{"ttl_seconds": -1})
	rr := testutil.DoRequest(f.router, f.do(req, alice))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	req = testutil.NewRequestWithBody(t, http.MethodPost, "/domains/curated/launchpad.io/reservation", "{")
	rr = testutil.DoRequest(f.router, f.do(req, alice))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(f.router, f.do(testutil.NewRequest(t, http.MethodPost, "/domains/curated/missing.io/reservation"), alice))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}
