// Package identity resolves a bearer token into a Principal against the
// identity provider's JWT secret, and extracts the principal's role set
// from its app/user metadata, following the four-location union algorithm.
package identity

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tesseract-hub/dashboard-gateway/internal/apierr"
)

// Principal is the authenticated caller: id, email, and the union of roles
// found across app_metadata/user_metadata. Materialised per-request only.
type Principal struct {
	ID    string
	Email string
	Roles map[string]struct{}
}

// HasRole reports whether the principal's role set contains role.
func (p Principal) HasRole(role string) bool {
	_, ok := p.Roles[role]
	return ok
}

// Resolver verifies bearer tokens against the identity provider's JWT
// secret (Supabase-style, HS256) and extracts principals from the claims.
type Resolver struct {
	jwtSecret []byte
}

// NewResolver builds a Resolver bound to the identity provider's JWT secret.
func NewResolver(jwtSecret string) *Resolver {
	return &Resolver{jwtSecret: []byte(jwtSecret)}
}

// ResolvePrincipal verifies token and returns the principal it names.
func (r *Resolver) ResolvePrincipal(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, apierr.Unauthenticated("token de autenticação ausente")
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("identity: unexpected signing method %v", t.Header["alg"])
		}
		return r.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Principal{}, apierr.Unauthenticated("token inválido ou expirado")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, apierr.Unauthenticated("token inválido")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, apierr.Unauthenticated("token sem identificador de assunto")
	}
	email, _ := claims["email"].(string)

	appMeta, _ := claims["app_metadata"].(map[string]any)
	userMeta, _ := claims["user_metadata"].(map[string]any)

	return Principal{
		ID:    sub,
		Email: email,
		Roles: ExtractRoles(appMeta, userMeta),
	}, nil
}

// RequireRole resolves the principal and additionally fails Forbidden
// unless its role set contains role.
func (r *Resolver) RequireRole(ctx context.Context, token, role string) (Principal, error) {
	p, err := r.ResolvePrincipal(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if role == "" {
		role = "admin"
	}
	if !p.HasRole(role) {
		return Principal{}, apierr.Forbidden("usuário não possui permissão para esta operação")
	}
	return p, nil
}

// ExtractRoles walks app_metadata.role, user_metadata.role,
// app_metadata.roles, user_metadata.roles in that order, unioning any
// string or []string values found, and always seeds the set with
// "authenticated".
//
// This matches the shared-helper seeding ({"authenticated"} only), not the
// chart-path helper's {"user","authenticated"} seeding — see DESIGN.md's
// Open Question decision for why the two were not reconciled into the
// {"user"} superset.
func ExtractRoles(appMetadata, userMetadata map[string]any) map[string]struct{} {
	set := map[string]struct{}{"authenticated": {}}
	contribute := func(meta map[string]any, key string) {
		if meta == nil {
			return
		}
		switch v := meta[key].(type) {
		case string:
			if v != "" {
				set[v] = struct{}{}
			}
		case []any:
			for _, elem := range v {
				if s, ok := elem.(string); ok && s != "" {
					set[s] = struct{}{}
				}
			}
		case []string:
			for _, s := range v {
				if s != "" {
					set[s] = struct{}{}
				}
			}
		}
	}
	contribute(appMetadata, "role")
	contribute(userMetadata, "role")
	contribute(appMetadata, "roles")
	contribute(userMetadata, "roles")
	return set
}
