package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"domainvault/internal/inventory/models"
	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	"domainvault/pkg/platform/audit"
	"domainvault/pkg/platform/sentinel"
	"domainvault/pkg/requestcontext"
)

// Reservations places and clears time-boxed holds on curated domains.
// Exclusivity comes from the store's conditional update; nothing here locks.
type Reservations struct {
	domains Store
	opts    options
}

func NewReservations(domains Store, opts ...Option) *Reservations {
	return &Reservations{domains: domains, opts: buildOptions(opts)}
}

// Reserve holds name for userID for ttl (zero means the default).
// Fails with CodeDomainUnavailable when the domain is held by anyone with a live
// hold, including the caller, or already purchased.
func (s *Reservations) Reserve(ctx context.Context, name string, userID id.UserID, ttl time.Duration) (*models.ReservationToken, error) {
	name = models.NormalizeName(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}
	if ttl == 0 {
		ttl = s.opts.defaultTTL
	}
	if ttl < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "reservation ttl must be positive")
	}
	if ttl > s.opts.maxTTL {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("reservation ttl cannot exceed %s", s.opts.maxTTL))
	}

	now := requestcontext.Now(ctx)
	d, err := s.domains.Reserve(ctx, name, userID, now, now.Add(ttl))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			s.incReservation("not_found")
			return nil, dErrors.New(dErrors.CodeNotFound, "curated domain not found")
		case errors.Is(err, sentinel.ErrConflict):
			s.incReservation("unavailable")
			return nil, dErrors.New(dErrors.CodeDomainUnavailable, name+" is not available for reservation")
		default:
			s.incReservation("error")
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve domain")
		}
	}

	s.incReservation("granted")
	logAudit(ctx, s.opts, audit.EventDomainReserved, userID,
		"domain", d.Name,
		"decision", "granted",
		"reserved_until", d.ReservedUntil,
	)
	return &models.ReservationToken{
		Domain:        d.Name,
		ReservedBy:    userID,
		ReservedUntil: *d.ReservedUntil,
	}, nil
}

// Release clears a hold. Users release only their own hold; admins release any.
func (s *Reservations) Release(ctx context.Context, name string, actor id.Actor) error {
	name = models.NormalizeName(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if actor.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "user id required")
	}

	var holder *id.UserID
	if !actor.IsAdmin() {
		holder = &actor.UserID
	}
	released, err := s.domains.Release(ctx, name, holder, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "curated domain not found")
		case errors.Is(err, sentinel.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "no reservation held by caller on "+name)
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release reservation")
		}
	}

	// Audit against the holder; an admin override records the admin as actor.
	subject := actor.UserID
	by := "holder"
	attributes := []any{"domain", released.Name, "decision", "released"}
	if released.ReservedBy != nil && *released.ReservedBy != actor.UserID {
		subject = *released.ReservedBy
		by = "admin"
		attributes = append(attributes, "actor_id", actor.UserID.String(), "reason", "admin_override")
	}
	if s.opts.metrics != nil {
		s.opts.metrics.IncRelease(by)
	}
	logAudit(ctx, s.opts, audit.EventDomainReleased, subject, attributes...)
	return nil
}

// SweepExpired returns every lapsed hold to available. Correctness never
// depends on it: reads and writes already treat lapsed holds as available.
func (s *Reservations) SweepExpired(ctx context.Context) (int, error) {
	names, err := s.domains.ReleaseExpired(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sweep expired reservations")
	}
	if len(names) == 0 {
		return 0, nil
	}
	if s.opts.metrics != nil {
		s.opts.metrics.AddSwept(len(names))
	}
	if s.opts.logger != nil {
		s.opts.logger.InfoContext(ctx, "expired reservations released",
			"event", string(audit.EventReservationsSwept),
			"count", len(names),
			"domains", names,
		)
	}
	return len(names), nil
}

func (s *Reservations) incReservation(outcome string) {
	if s.opts.metrics != nil {
		s.opts.metrics.IncReservation(outcome)
	}
}
