package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domainvault/internal/purchase/models"
	"domainvault/internal/purchase/reconcile"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/httputil"
	request "domainvault/pkg/platform/middleware/request"
	"domainvault/pkg/requestcontext"
)

type Service interface {
	PurchaseCuratedDomain(ctx context.Context, actor id.Actor, name string, selectedEmails []string, forwarding *string) (*models.CuratedPurchaseResult, error)
	PurchaseArbitraryDomain(ctx context.Context, actor id.Actor, req models.ArbitraryPurchaseRequest) (*models.PurchaseRecord, error)
	ListPurchases(ctx context.Context, userID id.UserID) ([]*models.PurchaseRecord, error)
	UpdateRecordStatus(ctx context.Context, actor id.Actor, orderID string, status models.RecordStatus, expiration *time.Time) (*models.PurchaseRecord, error)
	ListReconciliation(ctx context.Context, actor id.Actor) ([]reconcile.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the buyer routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/domains/curated/{domain}/purchase", h.HandlePurchaseCurated)
	r.Post("/domains/purchase", h.HandlePurchaseArbitrary)
	r.Get("/domains/purchases", h.HandleListPurchases)
}

// RegisterAdmin mounts the reconciliation routes. The router must require the admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Patch("/admin/purchases/{orderID}", h.HandleUpdateStatus)
	r.Get("/admin/reconciliation", h.HandleListReconciliation)
}

func (h *Handler) HandlePurchaseCurated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req := &models.CuratedPurchaseRequest{}
	if r.ContentLength != 0 {
		decoded, ok := httputil.DecodeAndPrepare[models.CuratedPurchaseRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		req = decoded
	}

	result, err := h.service.PurchaseCuratedDomain(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "domain"),
		req.SelectedEmails, req.ForwardingTarget)
	if err != nil {
		h.fail(ctx, w, "purchase curated domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) HandlePurchaseArbitrary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ArbitraryPurchaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.PurchaseArbitraryDomain(ctx, requestcontext.Actor(ctx), *req)
	if err != nil {
		h.fail(ctx, w, "purchase domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) HandleListPurchases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.service.ListPurchases(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "list purchases", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.PurchaseListResponse{Purchases: records})
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	record, err := h.service.UpdateRecordStatus(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "orderID"), req.Status, req.ExpirationDate)
	if err != nil {
		h.fail(ctx, w, "update purchase status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

type reconciliationResponse struct {
	Entries []reconcile.Entry `json:"entries"`
}

func (h *Handler) HandleListReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.ListReconciliation(ctx, requestcontext.Actor(ctx))
	if err != nil {
		h.fail(ctx, w, "list reconciliation entries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reconciliationResponse{Entries: entries})
}

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
