// Package jwttoken reads the session layer's access tokens. This service never issues tokens.
package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	id "domainvault/pkg/domain"
	dErrors "domainvault/pkg/domain-errors"
)

// Claims are the session-layer claims this service consumes.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Validator verifies HS256 tokens signed with the shared session key.
type Validator struct {
	signingKey []byte
	issuer     string
}

func NewValidator(signingKey, issuer string) *Validator {
	return &Validator{signingKey: []byte(signingKey), issuer: issuer}
}

func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ResolveActor validates the token and returns the (userId, role) it carries.
// The subject claim is used when user_id is absent.
func (v *Validator) ResolveActor(tokenString string) (id.Actor, error) {
	claims, err := v.ValidateToken(tokenString)
	if err != nil {
		return id.Actor{}, err
	}
	raw := claims.UserID
	if raw == "" {
		raw = claims.Subject
	}
	userID, err := id.ParseUserID(raw)
	if err != nil {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token carries no valid user id")
	}
	return id.Actor{UserID: userID, Role: id.ParseRole(claims.Role)}, nil
}
