// Package lookup serves the browse path: availability, pricing and
// suggestions for arbitrary domains, cached for a short TTL.
package lookup

import (
	"context"
	"fmt"
	"log/slog"

	"domainvault/internal/registrar"
	"domainvault/internal/registrar/metrics"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/requestcontext"
)

// Registrar is the subset of the gateway the browse path needs.
type Registrar interface {
	CheckAvailability(ctx context.Context, sld, tld string) (*registrar.CheckResult, error)
	CheckMany(ctx context.Context, pairs []registrar.DomainPair) []registrar.CheckResult
	GetPricing(ctx context.Context, sld, tld string, years int) (*registrar.Pricing, error)
	GetBalance(ctx context.Context) (id.Money, error)
}

// Cache stores JSON-encodable lookups. A miss is (false, nil).
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

type Service struct {
	registrar   Registrar
	cache       Cache
	metrics     *metrics.Metrics
	logger      *slog.Logger
	defaultTLDs []string
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDefaultTLDs sets the TLDs searched when the caller names none.
func WithDefaultTLDs(tlds []string) Option {
	return func(s *Service) {
		s.defaultTLDs = registrar.NormalizeTLDs(tlds)
	}
}

func New(r Registrar, opts ...Option) *Service {
	s := &Service{
		registrar:   r,
		logger:      slog.Default(),
		defaultTLDs: []string{"com", "net", "io"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check returns the availability of a fully qualified name.
func (s *Service) Check(ctx context.Context, domain string) (*registrar.CheckResult, error) {
	pair, err := registrar.ParseDomain(domain)
	if err != nil {
		return nil, err
	}
	key := checkKey(pair)
	var cached registrar.CheckResult
	if s.fromCache(ctx, "check", key, &cached) {
		return &cached, nil
	}

	res, err := s.registrar.CheckAvailability(ctx, pair.SLD, pair.TLD)
	if err != nil {
		return nil, s.translate(ctx, err, "check availability", pair.String())
	}
	s.toCache(ctx, key, res)
	return res, nil
}

// Pricing returns the registrar price for years (minimum 1).
func (s *Service) Pricing(ctx context.Context, domain string, years int) (*registrar.Pricing, error) {
	pair, err := registrar.ParseDomain(domain)
	if err != nil {
		return nil, err
	}
	if years < 1 || years > 10 {
		return nil, dErrors.New(dErrors.CodeValidation, "years must be between 1 and 10")
	}
	key := fmt.Sprintf("pricing:%s:%d", pair.String(), years)
	var cached registrar.Pricing
	if s.fromCache(ctx, "pricing", key, &cached) {
		return &cached, nil
	}

	p, err := s.registrar.GetPricing(ctx, pair.SLD, pair.TLD, years)
	if err != nil {
		return nil, s.translate(ctx, err, "get pricing", pair.String())
	}
	s.toCache(ctx, key, p)
	return p, nil
}

// Search checks the suggestion candidates for keyword. Cached answers are
// reused; the remainder go to the registrar in one bounded fan-out. Failed
// candidates are reported unavailable.
func (s *Service) Search(ctx context.Context, keyword string, tlds []string) ([]registrar.CheckResult, error) {
	if len(registrar.NormalizeTLDs(tlds)) == 0 {
		tlds = s.defaultTLDs
	}
	candidates, err := registrar.SuggestCandidates(keyword, tlds)
	if err != nil {
		return nil, err
	}

	results := make([]registrar.CheckResult, len(candidates))
	var missing []registrar.DomainPair
	var missingIdx []int
	for i, pair := range candidates {
		if s.fromCache(ctx, "check", checkKey(pair), &results[i]) {
			continue
		}
		missing = append(missing, pair)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		fresh := s.registrar.CheckMany(ctx, missing)
		for j, res := range fresh {
			results[missingIdx[j]] = res
			if res.Err == nil {
				s.toCache(ctx, checkKey(missing[j]), res)
			}
		}
	}
	return results, nil
}

// Balance reads the reseller balance live; it is never cached.
func (s *Service) Balance(ctx context.Context) (id.Money, error) {
	balance, err := s.registrar.GetBalance(ctx)
	if err != nil {
		return 0, s.translate(ctx, err, "get balance", "")
	}
	return balance, nil
}

func checkKey(pair registrar.DomainPair) string {
	return "check:" + pair.String()
}

func (s *Service) fromCache(ctx context.Context, kind, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.WarnContext(ctx, "lookup cache read failed",
			"key", key,
			"error", err,
		)
		hit = false
	}
	if s.metrics != nil {
		s.metrics.IncCache(kind, hit)
	}
	return hit
}

func (s *Service) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "lookup cache write failed",
			"key", key,
			"error", err,
		)
	}
}

// translate maps a gateway failure on the browse path to CodeRegistrar. The
// category, timeout included, is logged but not surfaced.
func (s *Service) translate(ctx context.Context, err error, op, domain string) error {
	code, raw := registrar.Detail(err)
	s.logger.ErrorContext(ctx, "registrar lookup failed",
		"operation", op,
		"domain", domain,
		"category", string(registrar.CategoryOf(err)),
		"registrar_code", code,
		"raw_response", raw,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeRegistrar, "registrar "+op+" failed")
}
