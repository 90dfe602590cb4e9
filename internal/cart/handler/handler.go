package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"domainvault/internal/cart/models"
	purchasemodels "domainvault/internal/purchase/models"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/httputil"
	request "domainvault/pkg/platform/middleware/request"
	"domainvault/pkg/requestcontext"
)

type Service interface {
	AddItem(ctx context.Context, userID id.UserID, domain string, years int) (*models.CartItem, error)
	UpdateItem(ctx context.Context, userID id.UserID, itemID id.CartItemID, years int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID id.UserID, itemID id.CartItemID) error
	Clear(ctx context.Context, userID id.UserID) (int, error)
	List(ctx context.Context, userID id.UserID) ([]*models.CartItem, error)
	PurchaseAll(ctx context.Context, actor id.Actor, registrant purchasemodels.ContactSnapshot) (*models.CheckoutResult, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/cart", h.HandleList)
	r.Delete("/cart", h.HandleClear)
	r.Post("/cart/items", h.HandleAddItem)
	r.Patch("/cart/items/{id}", h.HandleUpdateItem)
	r.Delete("/cart/items/{id}", h.HandleRemoveItem)
	r.Post("/cart/purchase", h.HandlePurchaseAll)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := h.service.List(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "list cart", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewCartResponse(items))
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.AddItemRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	item, err := h.service.AddItem(ctx, requestcontext.UserID(ctx), req.Domain, req.Years)
	if err != nil {
		h.fail(ctx, w, "add cart item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.UpdateItemRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	item, err := h.service.UpdateItem(ctx, requestcontext.UserID(ctx), itemID, req.Years)
	if err != nil {
		h.fail(ctx, w, "update cart item", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveItem(ctx, requestcontext.UserID(ctx), itemID); err != nil {
		h.fail(ctx, w, "remove cart item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.service.Clear(ctx, requestcontext.UserID(ctx)); err != nil {
		h.fail(ctx, w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePurchaseAll answers 200 with per-item outcomes even when some items failed.
func (h *Handler) HandlePurchaseAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.PurchaseAllRequest](w, r, h.logger, ctx, request.GetRequestID(ctx))
	if !ok {
		return
	}
	result, err := h.service.PurchaseAll(ctx, requestcontext.Actor(ctx), req.Registrant)
	if err != nil {
		h.fail(ctx, w, "cart checkout", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (id.CartItemID, bool) {
	itemID, err := id.ParseCartItemID(chi.URLParam(r, "id"))
	if err != nil {
		// A malformed id cannot name an item the caller owns.
		h.fail(r.Context(), w, "parse cart item id", dErrors.New(dErrors.CodeNotFound, "cart item not found"))
		return id.CartItemID{}, false
	}
	return itemID, true
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
