package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/marketplace-client/internal/model"
)

// roleClaims are the claims the client reads from the session token.
type roleClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// RoleFromToken decodes the role claim from a session JWT. The token is not
// signature-verified here: the client only routes behavior on the claim, the
// server re-checks authorization on every call. The role is read once at
// session construction and not tracked afterwards.
func RoleFromToken(token string) (model.Role, error) {
	parser := jwt.NewParser()
	claims := &roleClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	switch model.Role(claims.Role) {
	case model.RoleBuyer:
		return model.RoleBuyer, nil
	case model.RoleSupplier:
		return model.RoleSupplier, nil
	default:
		return "", fmt.Errorf("unknown role %q in session token", claims.Role)
	}
}
