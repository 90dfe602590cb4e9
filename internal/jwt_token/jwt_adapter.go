package jwttoken

import (
	"net/http"
	"strings"

	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
)

// BearerResolver reads the actor from an "Authorization: Bearer <jwt>" header.
// It satisfies the identity middleware's Resolver interface.
type BearerResolver struct {
	validator *Validator
}

func NewBearerResolver(validator *Validator) *BearerResolver {
	return &BearerResolver{validator: validator}
}

func (b *BearerResolver) Resolve(r *http.Request) (id.Actor, error) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header")
	}
	return b.validator.ResolveActor(strings.TrimSpace(token))
}
