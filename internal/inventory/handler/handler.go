package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/httputil"
	request "domainvault/pkg/platform/middleware/request"
	"domainvault/pkg/requestcontext"
)

type Registry interface {
	ListAvailable(ctx context.Context, search string) ([]*models.CuratedDomain, error)
	GetEmailsForDomain(ctx context.Context, name string) ([]models.Persona, error)
	ListOwned(ctx context.Context, userID id.UserID) ([]*models.CuratedDomain, error)
}

type Reservations interface {
	Reserve(ctx context.Context, name string, userID id.UserID, ttl time.Duration) (*models.ReservationToken, error)
	Release(ctx context.Context, name string, actor id.Actor) error
}

// Handler serves the curated inventory endpoints.
type Handler struct {
	registry     Registry
	reservations Reservations
	logger       *slog.Logger
}

func New(registry Registry, reservations Reservations, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, reservations: reservations, logger: logger}
}

// Register mounts the curated routes. Identity middleware must already be applied.
func (h *Handler) Register(r chi.Router) {
	r.Get("/domains/curated", h.HandleListAvailable)
	r.Get("/domains/curated/mine", h.HandleListOwned)
	r.Get("/domains/curated/{domain}/emails", h.HandleGetEmails)
	r.Post("/domains/curated/{domain}/reservation", h.HandleReserve)
	r.Delete("/domains/curated/{domain}/reservation", h.HandleRelease)
}

func (h *Handler) HandleListAvailable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domains, err := h.registry.ListAvailable(ctx, r.URL.Query().Get("search"))
	if err != nil {
		h.fail(ctx, w, "list curated domains", err)
		return
	}
	now := requestcontext.Now(ctx)
	resp := models.ListResponse{Domains: make([]models.CuratedDomainResponse, 0, len(domains))}
	for _, d := range domains {
		resp.Domains = append(resp.Domains, models.ToResponse(d, now))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domains, err := h.registry.ListOwned(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "list owned curated domains", err)
		return
	}
	now := requestcontext.Now(ctx)
	resp := models.ListResponse{Domains: make([]models.CuratedDomainResponse, 0, len(domains))}
	for _, d := range domains {
		resp.Domains = append(resp.Domains, models.ToResponse(d, now))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetEmails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := models.NormalizeName(chi.URLParam(r, "domain"))
	personas, err := h.registry.GetEmailsForDomain(ctx, name)
	if err != nil {
		h.fail(ctx, w, "get curated domain emails", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.EmailsResponse{Domain: name, Personas: personas})
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var ttl time.Duration
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[models.ReserveRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		ttl = req.TTL()
	}

	token, err := h.reservations.Reserve(ctx, chi.URLParam(r, "domain"), requestcontext.UserID(ctx), ttl)
	if err != nil {
		h.fail(ctx, w, "reserve curated domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, token)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.reservations.Release(ctx, chi.URLParam(r, "domain"), requestcontext.Actor(ctx)); err != nil {
		h.fail(ctx, w, "release reservation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs expected client errors at warn and everything else at error.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	level := slog.LevelWarn
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, op+" failed",
		"request_id", request.GetRequestID(ctx),
		"user_id", requestcontext.UserID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
