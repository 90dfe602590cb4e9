package testutil

import (
	"net/http"
	"time"

	id "domainvault/pkg/domain"
	"domainvault/pkg/requestcontext"
)

// WithActor attaches a caller identity to the request, as the identity middleware would.
func WithActor(req *http.Request, actor id.Actor) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}

// AtTime pins the request-scoped clock so expiry checks are deterministic.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
