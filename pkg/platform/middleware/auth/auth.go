// Package auth attaches the caller identity supplied by the session layer.
// This service performs no authentication of its own: it either trusts gateway
// headers or reads a session-layer JWT, depending on configuration.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
	request "domainvault/pkg/platform/middleware/request"
	"domainvault/pkg/requestcontext"
)

const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

// Resolver extracts the actor from a request.
type Resolver interface {
	Resolve(r *http.Request) (id.Actor, error)
}

// HeaderResolver trusts X-User-ID / X-User-Role set by the upstream gateway.
type HeaderResolver struct{}

func (HeaderResolver) Resolve(r *http.Request) (id.Actor, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing user identity")
	}
	userID, err := id.ParseUserID(raw)
	if err != nil {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid user identity")
	}
	return id.Actor{UserID: userID, Role: id.ParseRole(r.Header.Get(HeaderRole))}, nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireIdentity rejects requests without a resolvable actor and stores it in the context.
func RequireIdentity(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := resolver.Resolve(r)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - no caller identity",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, string(dErrors.CodeUnauthorized), "caller identity required")
				return
			}
			ctx = requestcontext.WithActor(ctx, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
