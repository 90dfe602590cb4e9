package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"domainvault/internal/registrar"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/httputil"
	request "domainvault/pkg/platform/middleware/request"
	"domainvault/pkg/requestcontext"
)

type Lookup interface {
	Check(ctx context.Context, domain string) (*registrar.CheckResult, error)
	Pricing(ctx context.Context, domain string, years int) (*registrar.Pricing, error)
	Search(ctx context.Context, keyword string, tlds []string) ([]registrar.CheckResult, error)
	Balance(ctx context.Context) (id.Money, error)
}

type SearchResponse struct {
	Keyword string                  `json:"keyword"`
	Results []registrar.CheckResult `json:"results"`
}

type BalanceResponse struct {
	AvailableBalance id.Money `json:"available_balance"`
	Currency         string   `json:"currency"`
}

// Handler serves arbitrary-domain lookups.
type Handler struct {
	lookup Lookup
	logger *slog.Logger
}

func New(lookup Lookup, logger *slog.Logger) *Handler {
	return &Handler{lookup: lookup, logger: logger}
}

// Register mounts the user-facing lookup routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/domains/search", h.HandleSearch)
	r.Get("/domains/check", h.HandleCheck)
	r.Get("/domains/pricing", h.HandlePricing)
}

// RegisterAdmin mounts operator routes. Admin middleware must already be applied.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/registrar/balance", h.HandleBalance)
}

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyword := r.URL.Query().Get("keyword")
	var tlds []string
	if raw := r.URL.Query().Get("tlds"); raw != "" {
		tlds = strings.Split(raw, ",")
	}
	results, err := h.lookup.Search(ctx, keyword, tlds)
	if err != nil {
		h.fail(ctx, w, "search domains", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SearchResponse{Keyword: strings.ToLower(strings.TrimSpace(keyword)), Results: results})
}

func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.lookup.Check(ctx, r.URL.Query().Get("domain"))
	if err != nil {
		h.fail(ctx, w, "check domain", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandlePricing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	years := 1
	if raw := r.URL.Query().Get("years"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(ctx, w, "get pricing", dErrors.New(dErrors.CodeValidation, "years must be an integer"))
			return
		}
		years = n
	}
	p, err := h.lookup.Pricing(ctx, r.URL.Query().Get("domain"), years)
	if err != nil {
		h.fail(ctx, w, "get pricing", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	balance, err := h.lookup.Balance(ctx)
	if err != nil {
		h.fail(ctx, w, "get registrar balance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{AvailableBalance: balance, Currency: "USD"})
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
